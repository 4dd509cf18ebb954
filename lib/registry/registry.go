// Package registry tracks every known domain in memory and serializes
// concurrent access to them. The lock order is always registry before
// object; helpers that hand out a locked object release the registry lock
// before returning.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/virtconf/virtconf/lib/domain"
	"github.com/virtconf/virtconf/lib/logger"
)

// ListFlags filter Names and Count. Zero means everything.
type ListFlags uint

const (
	ListActive ListFlags = 1 << iota
	ListInactive
	ListPersistent
	ListTransient
	ListAutostart
	ListNoAutostart
)

// Registry is the in-memory set of domains, indexed by uuid and by name.
// The mutex guards both indexes and orders before every object lock.
type Registry struct {
	mu     sync.Mutex
	byUUID map[uuid.UUID]*Domain
	byName map[string]*Domain
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byUUID: map[uuid.UUID]*Domain{},
		byName: map[string]*Domain{},
	}
}

// Define registers a parsed definition, or redefines an existing domain
// with the same uuid and name. Redefining an active domain stores the new
// definition for the next start instead of replacing the live one. The
// returned domain is locked.
func (r *Registry) Define(ctx context.Context, def *domain.Definition, live bool) (*Domain, error) {
	log := logger.FromContext(ctx)
	id, err := uuid.Parse(def.UUID)
	if err != nil {
		return nil, fmt.Errorf("parsing domain uuid: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.byUUID[id]; existing != nil {
		existing.Lock()
		if existing.name != def.Name {
			name := existing.name
			existing.Unlock()
			return nil, fmt.Errorf("%w: uuid %s belongs to %q", ErrAlreadyExists, id, name)
		}
		if existing.IsActive() && !live {
			existing.NewDef = def
		} else {
			existing.Def = def
			existing.NewDef = nil
		}
		existing.Persistent = true
		log.Debug("redefined domain", "name", def.Name, "uuid", id)
		return existing, nil
	}

	if other := r.byName[def.Name]; other != nil {
		return nil, fmt.Errorf("%w: name %q belongs to uuid %s", ErrAlreadyExists, def.Name, other.id)
	}

	dom := &Domain{
		id:           id,
		name:         def.Name,
		HypervisorID: -1,
		Def:          def,
		Persistent:   true,
		state:        domain.StateShutoff,
		reason:       domain.ReasonUnknown,
	}
	dom.Lock()
	r.byUUID[id] = dom
	r.byName[def.Name] = dom
	log.Debug("defined domain", "name", def.Name, "uuid", id)
	return dom, nil
}

// AddTransient registers a definition without marking it persistent, for
// guests launched from a one-off config.
func (r *Registry) AddTransient(ctx context.Context, def *domain.Definition) (*Domain, error) {
	dom, err := r.Define(ctx, def, true)
	if err != nil {
		return nil, err
	}
	dom.Persistent = false
	return dom, nil
}

// LookupByUUID returns the locked domain with the given uuid.
func (r *Registry) LookupByUUID(id uuid.UUID) (*Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dom := r.byUUID[id]
	if dom == nil {
		return nil, fmt.Errorf("%w: uuid %s", ErrNotFound, id)
	}
	dom.Lock()
	return dom, nil
}

// LookupByName returns the locked domain with the given name.
func (r *Registry) LookupByName(name string) (*Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dom := r.byName[name]
	if dom == nil {
		return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
	}
	dom.Lock()
	return dom, nil
}

// LookupByID returns the locked active domain with the given hypervisor id.
func (r *Registry) LookupByID(id int) (*Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dom := range r.byUUID {
		dom.Lock()
		if dom.IsActive() && dom.HypervisorID == id {
			return dom, nil
		}
		dom.Unlock()
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// Remove deletes the domain from both indexes. The caller must hold the
// object lock; Remove reacquires it in registry-then-object order to avoid
// inverting the lock hierarchy, and returns with the object still locked.
func (r *Registry) Remove(ctx context.Context, dom *Domain) {
	log := logger.FromContext(ctx)
	dom.Unlock()
	r.mu.Lock()
	dom.Lock()
	delete(r.byUUID, dom.id)
	delete(r.byName, dom.name)
	r.mu.Unlock()
	log.Debug("removed domain", "name", dom.name, "uuid", dom.id)
}

// ForEach calls fn for every domain with its lock held. The registry lock
// is held for the whole iteration, so fn must not call back into lookups.
func (r *Registry) ForEach(fn func(dom *Domain) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dom := range r.byUUID {
		dom.Lock()
		err := fn(dom)
		dom.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Names returns the sorted names of domains matching the filter.
func (r *Registry) Names(flags ListFlags) []string {
	var names []string
	_ = r.ForEach(func(dom *Domain) error {
		if matches(dom, flags) {
			names = append(names, dom.name)
		}
		return nil
	})
	sort.Strings(names)
	return names
}

// Count returns the number of domains matching the filter.
func (r *Registry) Count(flags ListFlags) int {
	n := 0
	_ = r.ForEach(func(dom *Domain) error {
		if matches(dom, flags) {
			n++
		}
		return nil
	})
	return n
}

func matches(dom *Domain, flags ListFlags) bool {
	if flags == 0 {
		return true
	}
	active := dom.IsActive()
	if flags&ListActive != 0 && flags&ListInactive == 0 && !active {
		return false
	}
	if flags&ListInactive != 0 && flags&ListActive == 0 && active {
		return false
	}
	if flags&ListPersistent != 0 && flags&ListTransient == 0 && !dom.Persistent {
		return false
	}
	if flags&ListTransient != 0 && flags&ListPersistent == 0 && dom.Persistent {
		return false
	}
	if flags&ListAutostart != 0 && flags&ListNoAutostart == 0 && !dom.Autostart {
		return false
	}
	if flags&ListNoAutostart != 0 && flags&ListAutostart == 0 && dom.Autostart {
		return false
	}
	return true
}
