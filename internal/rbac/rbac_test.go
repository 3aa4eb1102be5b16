package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/rbac"
)

func TestOwnerHasEveryPermission(t *testing.T) {
	for _, perm := range rbac.OwnerPermissions() {
		require.True(t, rbac.HasPermission(domain.MembershipRoleOwner, perm), "owner missing %s", perm)
	}
}

func TestStaffIsStrictSubset(t *testing.T) {
	require.True(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermViewDashboard))
	require.True(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermViewLeads))
	require.True(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermViewAppointments))

	require.False(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermManageTeam))
	require.False(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermManageBilling))
	require.False(t, rbac.HasPermission(domain.MembershipRoleStaff, rbac.PermEditBusiness))
}

func TestUnknownRoleHasNothing(t *testing.T) {
	for _, perm := range rbac.OwnerPermissions() {
		require.False(t, rbac.HasPermission("", perm))
		require.False(t, rbac.HasPermission("manager", perm))
	}
}

func TestFilterAuthorizedLinks(t *testing.T) {
	links := []rbac.Link{
		{Label: "Home", Path: "/dashboard"},
		{Label: "Leads", Path: "/dashboard/leads", Permission: rbac.PermViewLeads},
		{Label: "Team", Path: "/dashboard/team", Permission: rbac.PermManageTeam},
		{Label: "Billing", Path: "/dashboard/billing", Permission: rbac.PermManageBilling},
	}

	owner := rbac.FilterAuthorizedLinks(domain.MembershipRoleOwner, links)
	require.Len(t, owner, 4)

	staff := rbac.FilterAuthorizedLinks(domain.MembershipRoleStaff, links)
	require.Len(t, staff, 2)
	require.Equal(t, "Home", staff[0].Label)
	require.Equal(t, "Leads", staff[1].Label)
}

func TestUndeclaredPermissionLinksVisibleToAnyRole(t *testing.T) {
	links := []rbac.Link{{Label: "Help", Path: "/help"}}
	// Public within the authenticated area: visible even without a role.
	require.Len(t, rbac.FilterAuthorizedLinks("", links), 1)
}
