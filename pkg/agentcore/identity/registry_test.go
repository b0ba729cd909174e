package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(name string, opts ...IdentityOption) AgentIdentity {
	return NewIdentity(name, opts...)
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner", WithFramework("langgraph"), WithModel("gpt-4o"))

	require.NoError(t, reg.Register(id))

	rec, err := reg.Get(id.AgentID)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Identity)
	assert.True(t, rec.Active)
	assert.False(t, rec.RegisteredAt.IsZero())
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner")
	require.NoError(t, reg.Register(id))

	err := reg.Register(id)
	var dup *DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id.AgentID, dup.AgentID)
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterRejectsInvalidIdentity(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(AgentIdentity{Name: "no-id"}), ErrInvalidIdentity)
	assert.ErrorIs(t, reg.Register(AgentIdentity{AgentID: "id-1"}), ErrInvalidIdentity)
}

func TestGetUnknownAgent(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("ghost")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.AgentID)
}

func TestDeactivateReactivateCycle(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner")
	require.NoError(t, reg.Register(id))

	require.NoError(t, reg.Deactivate(id.AgentID))
	rec, err := reg.Get(id.AgentID)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.NotNil(t, rec.DeactivatedAt)

	// Idempotent on repeat.
	require.NoError(t, reg.Deactivate(id.AgentID))

	require.NoError(t, reg.Reactivate(id.AgentID))
	rec, err = reg.Get(id.AgentID)
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.Nil(t, rec.DeactivatedAt)

	var nf *NotFoundError
	assert.ErrorAs(t, reg.Deactivate("ghost"), &nf)
	assert.ErrorAs(t, reg.Reactivate("ghost"), &nf)
}

func TestReissueReplacesUnderSameID(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner", WithVersion("1.0"))
	require.NoError(t, reg.Register(id))
	require.NoError(t, reg.Deactivate(id.AgentID))

	replacement := NewIdentity("planner", WithVersion("2.0"))
	rec, err := reg.Reissue(id.AgentID, replacement)
	require.NoError(t, err)

	assert.Equal(t, id.AgentID, rec.Identity.AgentID, "agent id is preserved")
	assert.Equal(t, "2.0", rec.Identity.Version)
	assert.True(t, rec.Active, "reissue reactivates")
	assert.NotNil(t, rec.ReissuedAt)
	assert.NotEqual(t, id.Fingerprint(), rec.Identity.Fingerprint())
	assert.Equal(t, 1, reg.Len())
}

func TestListAndFind(t *testing.T) {
	reg := NewRegistry()
	a := testIdentity("planner", WithAgentID("a"), WithFramework("langgraph"))
	b := testIdentity("critic", WithAgentID("b"), WithFramework("crewai"))
	c := testIdentity("planner", WithAgentID("c"), WithFramework("crewai"))
	for _, id := range []AgentIdentity{c, a, b} {
		require.NoError(t, reg.Register(id))
	}

	all := reg.List()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Identity.AgentID)
	assert.Equal(t, "b", all[1].Identity.AgentID)
	assert.Equal(t, "c", all[2].Identity.AgentID)

	planners := reg.FindByName("planner")
	require.Len(t, planners, 2)
	assert.Equal(t, "a", planners[0].Identity.AgentID)

	crews := reg.FindByFramework("crewai")
	require.Len(t, crews, 2)
	assert.Empty(t, reg.FindByName("nobody"))
}

func TestLookupAgentResolverContract(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner")
	require.NoError(t, reg.Register(id))

	known, active := reg.LookupAgent(id.AgentID)
	assert.True(t, known)
	assert.True(t, active)

	require.NoError(t, reg.Deactivate(id.AgentID))
	known, active = reg.LookupAgent(id.AgentID)
	assert.True(t, known)
	assert.False(t, active)

	known, active = reg.LookupAgent("ghost")
	assert.False(t, known)
	assert.False(t, active)
}

func TestConcurrentRegisterSameID(t *testing.T) {
	reg := NewRegistry()
	id := testIdentity("planner")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.Register(id)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			var dup *DuplicateIdentityError
			assert.ErrorAs(t, err, &dup)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, reg.Len())
}

func TestFingerprintStability(t *testing.T) {
	a := AgentIdentity{AgentID: "a", Name: "planner", Version: "1.0", Framework: "langgraph", Model: "gpt-4o"}
	b := a
	b.Metadata = map[string]string{"team": "infra"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "metadata does not affect the fingerprint")
	assert.Len(t, a.Fingerprint(), 64)

	c := a
	c.Version = "2.0"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
