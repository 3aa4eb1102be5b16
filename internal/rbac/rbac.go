package rbac

import "github.com/deskhq/desk-session/internal/domain"

// Permission names a capability gated by membership role.
type Permission string

const (
	PermViewDashboard    Permission = "view_dashboard"
	PermViewLeads        Permission = "view_leads"
	PermViewAppointments Permission = "view_appointments"
	PermManageLeads      Permission = "manage_leads"
	PermManageServices   Permission = "manage_services"
	PermManageTeam       Permission = "manage_team"
	PermManageBilling    Permission = "manage_billing"
	PermEditBusiness     Permission = "edit_business"
)

// ownerPermissions is the full set. staffPermissions is a strict subset
// limited to view-only operational pages.
var (
	ownerPermissions = permissionSet(
		PermViewDashboard, PermViewLeads, PermViewAppointments,
		PermManageLeads, PermManageServices, PermManageTeam,
		PermManageBilling, PermEditBusiness,
	)
	staffPermissions = permissionSet(
		PermViewDashboard, PermViewLeads, PermViewAppointments,
	)
)

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// OwnerPermissions lists every permission in the owner set.
func OwnerPermissions() []Permission {
	perms := make([]Permission, 0, len(ownerPermissions))
	for p := range ownerPermissions {
		perms = append(perms, p)
	}
	return perms
}

// HasPermission reports whether the membership role grants the permission.
// An unknown or empty role grants nothing.
func HasPermission(role domain.MembershipRole, perm Permission) bool {
	switch role {
	case domain.MembershipRoleOwner:
		_, ok := ownerPermissions[perm]
		return ok
	case domain.MembershipRoleStaff:
		_, ok := staffPermissions[perm]
		return ok
	default:
		return false
	}
}

// Link is a navigation entry with an optional permission requirement.
type Link struct {
	Label      string     `json:"label"`
	Path       string     `json:"path"`
	Permission Permission `json:"permission,omitempty"`
}

// FilterAuthorizedLinks keeps links the role may see. A link with no
// declared permission is visible to every role.
func FilterAuthorizedLinks(role domain.MembershipRole, links []Link) []Link {
	filtered := make([]Link, 0, len(links))
	for _, link := range links {
		if link.Permission == "" || HasPermission(role, link.Permission) {
			filtered = append(filtered, link)
		}
	}
	return filtered
}
