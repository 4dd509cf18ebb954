package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidState(t *testing.T) {
	assert.True(t, ValidState(StateRunning))
	assert.True(t, ValidState(StateShutoff))
	assert.False(t, ValidState("hibernating"))
}

func TestNormalizeReason(t *testing.T) {
	// a reason valid for its state passes through
	assert.Equal(t, StateReason("booted"), NormalizeReason(StateRunning, "booted"))
	// a reason from another state resets to unknown
	assert.Equal(t, ReasonUnknown, NormalizeReason(StateRunning, "destroyed"))
	assert.Equal(t, ReasonUnknown, NormalizeReason(StateShutoff, "booted"))
	assert.Equal(t, StateReason("destroyed"), NormalizeReason(StateShutoff, "destroyed"))
}

func TestDomStateIsActive(t *testing.T) {
	assert.True(t, StateRunning.IsActive())
	assert.True(t, StatePaused.IsActive())
	assert.False(t, StateShutoff.IsActive())
	assert.False(t, StateNoState.IsActive())
}

func TestTaintNames(t *testing.T) {
	for taint, name := range map[Taint]string{
		TaintCustomArgv:     "custom-argv",
		TaintHighPrivileges: "high-privileges",
		TaintExternalLaunch: "external-launched",
	} {
		assert.Equal(t, name, taint.String())
		back, ok := TaintFromName(name)
		assert.True(t, ok)
		assert.Equal(t, taint, back)
	}
	_, ok := TaintFromName("nonsense")
	assert.False(t, ok)
}
