package membership_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/membership"
)

func TestLoadResolvesMemberships(t *testing.T) {
	dir := &stubDirectory{memberships: []domain.BusinessMembership{
		{UserID: "u1", BusinessID: "b1", Role: domain.MembershipRoleOwner, Business: domain.Business{ID: "b1"}},
	}}
	loader := membership.NewLoader(dir, 100*time.Millisecond, zap.NewNop())

	result := loader.Load(context.Background(), 7, "u1")
	require.Equal(t, int64(7), result.Epoch)
	require.False(t, result.TimedOut)
	require.NoError(t, result.Err)
	require.Len(t, result.Memberships, 1)
}

func TestLoadForcesEmptyAtTimeoutBoundary(t *testing.T) {
	dir := &stubDirectory{
		memberships: []domain.BusinessMembership{{BusinessID: "b1"}},
		delay:       500 * time.Millisecond,
	}
	loader := membership.NewLoader(dir, 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	result := loader.Load(context.Background(), 1, "u1")
	elapsed := time.Since(start)

	require.True(t, result.TimedOut)
	require.Empty(t, result.Memberships)
	// Resolution happens at the bound, not when the slow response lands.
	require.Less(t, elapsed, 300*time.Millisecond)
}

func TestLoadResolvesEmptyOnError(t *testing.T) {
	dir := &stubDirectory{err: errors.New("backend down")}
	loader := membership.NewLoader(dir, 100*time.Millisecond, zap.NewNop())

	result := loader.Load(context.Background(), 1, "u1")
	require.False(t, result.TimedOut)
	require.Error(t, result.Err)
	require.Empty(t, result.Memberships)
}

type stubDirectory struct {
	memberships []domain.BusinessMembership
	err         error
	delay       time.Duration
}

func (d *stubDirectory) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	return domain.Profile{UserID: userID, Role: domain.ProfileRoleOwner}, nil
}

func (d *stubDirectory) ListMemberships(ctx context.Context, userID string) ([]domain.BusinessMembership, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.memberships, nil
}

func (d *stubDirectory) SetDefault(ctx context.Context, userID, businessID string) error {
	return nil
}
