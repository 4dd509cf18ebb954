package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/virtconf/virtconf/lib/domain"
)

// Domain is a registered guest: its persistent definition, optional pending
// redefinition, and runtime bookkeeping. Every field access requires the
// object lock; lookups return the object already locked.
type Domain struct {
	mu sync.Mutex

	id   uuid.UUID
	name string

	// HypervisorID is the driver's runtime id; -1 while inactive.
	HypervisorID int

	// Def is the live (or only) definition. NewDef, when set, is the
	// redefinition that takes effect on the next start.
	Def    *domain.Definition
	NewDef *domain.Definition

	// Persistent marks domains backed by an on-disk config; transient
	// domains vanish from the registry when they stop.
	Persistent bool
	Autostart  bool

	PID int

	state  domain.DomState
	reason domain.StateReason

	taints uint

	// PrivateData is owned by the hypervisor driver.
	PrivateData any
}

func (d *Domain) Lock()   { d.mu.Lock() }
func (d *Domain) Unlock() { d.mu.Unlock() }

// UUID returns the immutable identity of the domain.
func (d *Domain) UUID() uuid.UUID { return d.id }

// Name returns the immutable name of the domain.
func (d *Domain) Name() string { return d.name }

// State returns the current lifecycle state and its reason.
func (d *Domain) State() (domain.DomState, domain.StateReason) {
	return d.state, d.reason
}

// IsActive reports whether the domain currently has a live process.
func (d *Domain) IsActive() bool {
	return d.state.IsActive()
}

// SetState moves the domain to the given state. A reason the state does not
// recognize is recorded as unknown rather than rejected.
func (d *Domain) SetState(state domain.DomState, reason domain.StateReason) error {
	if !domain.ValidState(state) {
		return fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	d.state = state
	d.reason = domain.NormalizeReason(state, reason)
	return nil
}

// ActiveDef returns the definition a running guest uses: the live one,
// never the pending redefinition.
func (d *Domain) ActiveDef() *domain.Definition {
	return d.Def
}

// PersistentDef returns the definition the next start will use.
func (d *Domain) PersistentDef() *domain.Definition {
	if d.NewDef != nil {
		return d.NewDef
	}
	return d.Def
}

// Taint marks the domain and reports whether it was already marked.
func (d *Domain) Taint(t domain.Taint) bool {
	bit := uint(1) << t
	was := d.taints&bit != 0
	d.taints |= bit
	return was
}

// Tainted reports whether the given taint is set.
func (d *Domain) Tainted(t domain.Taint) bool {
	return d.taints&(uint(1)<<t) != 0
}

// Taints returns the set taints in declaration order.
func (d *Domain) Taints() []domain.Taint {
	var out []domain.Taint
	for t := domain.Taint(0); d.taints>>t != 0; t++ {
		if d.taints&(uint(1)<<t) != 0 {
			out = append(out, t)
		}
	}
	return out
}
