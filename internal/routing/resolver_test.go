package routing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/routing"
)

func TestPublicPathsAlwaysAllowed(t *testing.T) {
	for _, path := range []string{"/", "/login", "/signup", "/demo", "/b/acme-plumbing", "/b/acme-plumbing/book"} {
		decision := routing.Resolve(routing.State{Path: path})
		require.True(t, decision.Allow, "path %s should be public", path)
		require.Empty(t, decision.RedirectTo)
	}
}

func TestUnauthenticatedDashboardRedirectsToLogin(t *testing.T) {
	decision := routing.Resolve(routing.State{Path: "/dashboard"})
	require.False(t, decision.Allow)
	require.Equal(t, routing.PathLogin, decision.RedirectTo)
}

func TestOwnerWithoutTenantRedirectsToOnboarding(t *testing.T) {
	state := routing.State{
		Role:            domain.ProfileRoleOwner,
		IsAuthenticated: true,
		Path:            "/dashboard",
	}
	decision := routing.Resolve(state)
	require.Equal(t, routing.PathOnboarding, decision.RedirectTo)

	// Onboarding itself must stay reachable or the guard would loop.
	state.Path = "/onboarding"
	require.True(t, routing.Resolve(state).Allow)
}

func TestOwnerWithTenantAllowedOnOwnerPages(t *testing.T) {
	decision := routing.Resolve(routing.State{
		Role:            domain.ProfileRoleOwner,
		HasActiveTenant: true,
		IsAuthenticated: true,
		Path:            "/dashboard/leads",
	})
	require.True(t, decision.Allow)
}

func TestOwnerOnClientPagesRedirectsToOwnerHome(t *testing.T) {
	withTenant := routing.Resolve(routing.State{
		Role:            domain.ProfileRoleOwner,
		HasActiveTenant: true,
		IsAuthenticated: true,
		Path:            "/my/appointments",
	})
	require.Equal(t, routing.PathDashboard, withTenant.RedirectTo)

	withoutTenant := routing.Resolve(routing.State{
		Role:            domain.ProfileRoleOwner,
		IsAuthenticated: true,
		Path:            "/my/appointments",
	})
	require.Equal(t, routing.PathOnboarding, withoutTenant.RedirectTo)
}

func TestClientOnOwnerPagesRedirectsToClientHome(t *testing.T) {
	decision := routing.Resolve(routing.State{
		Role:            domain.ProfileRoleClient,
		IsAuthenticated: true,
		Path:            "/dashboard",
	})
	require.Equal(t, routing.PathClientHome, decision.RedirectTo)
	// A client never lands on onboarding.
	require.NotEqual(t, routing.PathOnboarding, decision.RedirectTo)
}

func TestUnresolvedRoleRedirectsToLanding(t *testing.T) {
	decision := routing.Resolve(routing.State{
		IsAuthenticated: true,
		Path:            "/dashboard",
	})
	require.Equal(t, routing.PathLanding, decision.RedirectTo)
}

func TestRoleHintOverridesStoredRoleForInitialRedirect(t *testing.T) {
	// Stored role missing, hint present: the hint decides.
	decision := routing.Resolve(routing.State{
		IsAuthenticated: true,
		Path:            "/dashboard",
		RoleHint:        domain.ProfileRoleOwner,
	})
	require.Equal(t, routing.PathOnboarding, decision.RedirectTo)
	require.False(t, decision.RoleMismatch)

	// Hint disagrees with the stored role: still decided by the hint, but
	// the disagreement is surfaced.
	decision = routing.Resolve(routing.State{
		Role:            domain.ProfileRoleClient,
		IsAuthenticated: true,
		Path:            "/dashboard",
		RoleHint:        domain.ProfileRoleOwner,
	})
	require.Equal(t, routing.PathOnboarding, decision.RedirectTo)
	require.True(t, decision.RoleMismatch)
}

func TestResolveIsDeterministic(t *testing.T) {
	state := routing.State{
		Role:            domain.ProfileRoleOwner,
		HasActiveTenant: true,
		IsAuthenticated: true,
		Path:            "/dashboard/settings",
	}
	first := routing.Resolve(state)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, routing.Resolve(state))
	}
}

func TestRedirectTargetsNeverLoop(t *testing.T) {
	states := []routing.State{
		{Path: "/dashboard"},
		{IsAuthenticated: true, Path: "/dashboard"},
		{Role: domain.ProfileRoleOwner, IsAuthenticated: true, Path: "/dashboard"},
		{Role: domain.ProfileRoleOwner, IsAuthenticated: true, Path: "/my"},
		{Role: domain.ProfileRoleOwner, HasActiveTenant: true, IsAuthenticated: true, Path: "/my"},
		{Role: domain.ProfileRoleClient, IsAuthenticated: true, Path: "/dashboard"},
	}
	for _, state := range states {
		decision := routing.Resolve(state)
		if decision.Allow {
			continue
		}
		followUp := state
		followUp.Path = decision.RedirectTo
		next := routing.Resolve(followUp)
		require.True(t, next.Allow, "redirect target %s from %s must itself resolve to allow", decision.RedirectTo, state.Path)
	}
}

func TestTrailingSlashAndEmptyPathNormalization(t *testing.T) {
	require.True(t, routing.Resolve(routing.State{Path: ""}).Allow)
	require.Equal(t,
		routing.Resolve(routing.State{Path: "/login/"}),
		routing.Resolve(routing.State{Path: "/login"}))
}
