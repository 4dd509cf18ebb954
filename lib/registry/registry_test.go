package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtconf/virtconf/lib/domain"
)

func testDef(name string) *domain.Definition {
	return &domain.Definition{
		Type: domain.VirtKVM,
		Name: name,
		UUID: uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String(),
	}
}

func TestDefineAndLookup(t *testing.T) {
	ctx := context.Background()
	r := New()

	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	assert.Equal(t, "vm1", dom.Name())
	assert.True(t, dom.Persistent)
	dom.Unlock()

	byName, err := r.LookupByName("vm1")
	require.NoError(t, err)
	assert.Equal(t, dom.UUID(), byName.UUID())
	byName.Unlock()

	byUUID, err := r.LookupByUUID(dom.UUID())
	require.NoError(t, err)
	assert.Equal(t, "vm1", byUUID.Name())
	byUUID.Unlock()

	_, err = r.LookupByName("vm2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDefineCollisions(t *testing.T) {
	ctx := context.Background()
	r := New()

	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	dom.Unlock()

	// same name, different uuid
	clash := testDef("vm1")
	clash.UUID = uuid.NewString()
	_, err = r.Define(ctx, clash, false)
	require.ErrorIs(t, err, ErrAlreadyExists)

	// same uuid, different name
	renamed := testDef("vm1")
	renamed.Name = "vm1-renamed"
	_, err = r.Define(ctx, renamed, false)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRedefine(t *testing.T) {
	ctx := context.Background()
	r := New()

	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	dom.Unlock()

	t.Run("inactive domain replaces definition", func(t *testing.T) {
		updated := testDef("vm1")
		updated.Title = "second"
		dom, err := r.Define(ctx, updated, false)
		require.NoError(t, err)
		defer dom.Unlock()
		assert.Equal(t, "second", dom.Def.Title)
		assert.Nil(t, dom.NewDef)
	})

	t.Run("active domain keeps live definition", func(t *testing.T) {
		dom, err := r.LookupByName("vm1")
		require.NoError(t, err)
		require.NoError(t, dom.SetState(domain.StateRunning, "booted"))
		dom.Unlock()

		updated := testDef("vm1")
		updated.Title = "third"
		dom, err = r.Define(ctx, updated, false)
		require.NoError(t, err)
		defer dom.Unlock()
		assert.Equal(t, "second", dom.Def.Title)
		require.NotNil(t, dom.NewDef)
		assert.Equal(t, "third", dom.NewDef.Title)
		assert.Equal(t, "third", dom.PersistentDef().Title)
		assert.Equal(t, "second", dom.ActiveDef().Title)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	r := New()

	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)

	r.Remove(ctx, dom)
	dom.Unlock()

	_, err = r.LookupByName("vm1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.LookupByUUID(dom.UUID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByID(t *testing.T) {
	ctx := context.Background()
	r := New()

	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	require.NoError(t, dom.SetState(domain.StateRunning, "booted"))
	dom.HypervisorID = 42
	dom.Unlock()

	found, err := r.LookupByID(42)
	require.NoError(t, err)
	assert.Equal(t, "vm1", found.Name())
	found.Unlock()

	_, err = r.LookupByID(7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetState(t *testing.T) {
	ctx := context.Background()
	r := New()
	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	defer dom.Unlock()

	require.NoError(t, dom.SetState(domain.StateRunning, "booted"))
	state, reason := dom.State()
	assert.Equal(t, domain.StateRunning, state)
	assert.Equal(t, domain.StateReason("booted"), reason)

	// unrecognized reason is recorded as unknown
	require.NoError(t, dom.SetState(domain.StatePaused, "booted"))
	_, reason = dom.State()
	assert.Equal(t, domain.ReasonUnknown, reason)

	require.ErrorIs(t, dom.SetState("hibernating", ""), ErrInvalidState)
}

func TestTaints(t *testing.T) {
	ctx := context.Background()
	r := New()
	dom, err := r.Define(ctx, testDef("vm1"), false)
	require.NoError(t, err)
	defer dom.Unlock()

	assert.False(t, dom.Taint(domain.TaintCustomArgv))
	assert.True(t, dom.Taint(domain.TaintCustomArgv))
	assert.False(t, dom.Taint(domain.TaintHighPrivileges))

	assert.True(t, dom.Tainted(domain.TaintCustomArgv))
	assert.False(t, dom.Tainted(domain.TaintDiskProbing))
	assert.Equal(t, []domain.Taint{domain.TaintCustomArgv, domain.TaintHighPrivileges}, dom.Taints())
}

func TestNamesFiltering(t *testing.T) {
	ctx := context.Background()
	r := New()

	for i := 0; i < 4; i++ {
		dom, err := r.Define(ctx, testDef(fmt.Sprintf("vm%d", i)), false)
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, dom.SetState(domain.StateRunning, "booted"))
		}
		if i == 1 {
			dom.Autostart = true
		}
		dom.Unlock()
	}

	assert.Len(t, r.Names(0), 4)
	assert.Equal(t, []string{"vm0", "vm2"}, r.Names(ListActive))
	assert.Equal(t, []string{"vm1", "vm3"}, r.Names(ListInactive))
	assert.Equal(t, []string{"vm1"}, r.Names(ListAutostart))
	assert.Equal(t, []string{"vm1", "vm3"}, r.Names(ListInactive|ListPersistent))
	assert.Equal(t, 2, r.Count(ListActive))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("vm%d", i%4)
			dom, err := r.Define(ctx, testDef(name), false)
			if err == nil {
				dom.Taint(domain.TaintShellScripts)
				dom.Unlock()
			}
			if dom, err := r.LookupByName(name); err == nil {
				_ = dom.Tainted(domain.TaintShellScripts)
				dom.Unlock()
			}
			_ = r.Names(0)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, r.Count(0))
}
