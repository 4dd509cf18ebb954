package domain

import (
	"github.com/samber/lo"
)

// DomState is the lifecycle state of a guest.
type DomState string

const (
	StateNoState     DomState = "nostate"
	StateRunning     DomState = "running"
	StateBlocked     DomState = "blocked"
	StatePaused      DomState = "paused"
	StateShutdown    DomState = "shutdown"
	StateShutoff     DomState = "shutoff"
	StateCrashed     DomState = "crashed"
	StatePMSuspended DomState = "pmsuspended"
)

var domStates = []DomState{StateNoState, StateRunning, StateBlocked, StatePaused,
	StateShutdown, StateShutoff, StateCrashed, StatePMSuspended}

// StateReason qualifies how a guest entered its current state.
type StateReason string

const ReasonUnknown StateReason = "unknown"

// stateReasons lists the reasons recognized for each state; "unknown" is
// always valid.
var stateReasons = map[DomState][]StateReason{
	StateNoState: {ReasonUnknown},
	StateRunning: {ReasonUnknown, "booted", "migrated", "restored", "from snapshot",
		"unpaused", "migration canceled", "save canceled", "wakeup"},
	StateBlocked: {ReasonUnknown},
	StatePaused: {ReasonUnknown, "user", "migration", "save", "dump", "ioerror",
		"watchdog", "from snapshot", "shutdown", "snapshot"},
	StateShutdown:    {ReasonUnknown, "user"},
	StateShutoff:     {ReasonUnknown, "shutdown", "destroyed", "crashed", "migrated", "saved", "failed", "from snapshot"},
	StateCrashed:     {ReasonUnknown},
	StatePMSuspended: {ReasonUnknown},
}

// ValidState reports whether s is a recognized lifecycle state.
func ValidState(s DomState) bool {
	return lo.Contains(domStates, s)
}

// NormalizeReason returns the reason unchanged when it is valid for the
// state, otherwise "unknown".
func NormalizeReason(s DomState, r StateReason) StateReason {
	if lo.Contains(stateReasons[s], r) {
		return r
	}
	return ReasonUnknown
}

// IsActive reports whether the state describes a guest with a live process.
func (s DomState) IsActive() bool {
	switch s {
	case StateRunning, StateBlocked, StatePaused, StateShutdown, StatePMSuspended:
		return true
	}
	return false
}
