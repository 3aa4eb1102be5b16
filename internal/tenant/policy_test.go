package tenant_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/tenant"
)

func memberships(ids ...string) []domain.BusinessMembership {
	out := make([]domain.BusinessMembership, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.BusinessMembership{
			UserID:     "user-1",
			BusinessID: id,
			Role:       domain.MembershipRoleOwner,
			Business:   domain.Business{ID: id, Name: "Business " + id},
		})
	}
	return out
}

func TestSelectActiveTenantPrefersPersisted(t *testing.T) {
	set := memberships("a", "b", "c")
	set[2].IsDefault = true

	chosen := tenant.SelectActiveTenant(set, "b")
	require.NotNil(t, chosen)
	require.Equal(t, "b", chosen.ID)
}

func TestSelectActiveTenantFallsBackToDefaultFlag(t *testing.T) {
	set := memberships("a", "b")
	set[1].IsDefault = true

	// Persisted id points at a business no longer in the set.
	chosen := tenant.SelectActiveTenant(set, "removed")
	require.NotNil(t, chosen)
	require.Equal(t, "b", chosen.ID)
}

func TestSelectActiveTenantFallsBackToFirst(t *testing.T) {
	chosen := tenant.SelectActiveTenant(memberships("a", "b"), "")
	require.NotNil(t, chosen)
	require.Equal(t, "a", chosen.ID)
}

func TestSelectActiveTenantEmptySetIsNil(t *testing.T) {
	require.Nil(t, tenant.SelectActiveTenant(nil, "a"))
	require.Nil(t, tenant.SelectActiveTenant([]domain.BusinessMembership{}, ""))
}

func TestSelectActiveTenantAlwaysMemberOfSet(t *testing.T) {
	set := memberships("x", "y", "z")
	for _, persisted := range []string{"", "x", "y", "z", "stale"} {
		chosen := tenant.SelectActiveTenant(set, persisted)
		require.NotNil(t, chosen)
		found := false
		for _, m := range set {
			if m.BusinessID == chosen.ID {
				found = true
			}
		}
		require.True(t, found, "persisted=%q chose %q outside the set", persisted, chosen.ID)
	}
}

func TestPolicySelectPersistsOutcome(t *testing.T) {
	store := newCountingStore()
	policy := tenant.NewPolicy(store, zap.NewNop())

	chosen := policy.Select(context.Background(), "user-1", memberships("a", "b"))
	require.Equal(t, "a", chosen.ID)

	persisted, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "a", persisted)
}

func TestPolicySelectClearsOnEmptySet(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.Put(context.Background(), "user-1", "gone"))
	policy := tenant.NewPolicy(store, zap.NewNop())

	require.Nil(t, policy.Select(context.Background(), "user-1", nil))

	_, err := store.Get(context.Background(), "user-1")
	require.ErrorIs(t, err, domain.ErrSelectionNotFound)
}

func TestPolicySwitchRejectsNonMember(t *testing.T) {
	store := newCountingStore()
	policy := tenant.NewPolicy(store, zap.NewNop())

	_, err := policy.Switch(context.Background(), "user-1", memberships("a"), "b")
	require.ErrorIs(t, err, domain.ErrNotMember)
	require.Zero(t, store.puts)
}

func TestPolicySwitchRepeatIsObservablyIdempotent(t *testing.T) {
	store := newCountingStore()
	policy := tenant.NewPolicy(store, zap.NewNop())
	set := memberships("a", "b")

	first, err := policy.Switch(context.Background(), "user-1", set, "b")
	require.NoError(t, err)
	require.Equal(t, "b", first.ID)

	second, err := policy.Switch(context.Background(), "user-1", set, "b")
	require.NoError(t, err)
	require.Equal(t, "b", second.ID)

	// Repeating the switch changes nothing observable. Each attempt still
	// writes so the persisted entry's TTL is refreshed by use.
	persisted, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "b", persisted)
	require.Equal(t, 2, store.puts)
}

func TestPolicySelectRewritesUnchangedSelection(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.Put(context.Background(), "user-1", "a"))
	policy := tenant.NewPolicy(store, zap.NewNop())

	chosen := policy.Select(context.Background(), "user-1", memberships("a", "b"))
	require.Equal(t, "a", chosen.ID)
	// One seed write plus the TTL-refreshing re-write.
	require.Equal(t, 2, store.puts)
}

// countingStore wraps MemoryStore and counts writes.
type countingStore struct {
	mu    sync.Mutex
	inner *tenant.MemoryStore
	puts  int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: tenant.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, userID string) (string, error) {
	return s.inner.Get(ctx, userID)
}

func (s *countingStore) Put(ctx context.Context, userID, businessID string) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.inner.Put(ctx, userID, businessID)
}

func (s *countingStore) Delete(ctx context.Context, userID string) error {
	return s.inner.Delete(ctx, userID)
}
