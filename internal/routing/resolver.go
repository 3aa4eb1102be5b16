package routing

import (
	"strings"

	"github.com/deskhq/desk-session/internal/domain"
)

// Well-known application paths.
const (
	PathLanding    = "/"
	PathLogin      = "/login"
	PathSignup     = "/signup"
	PathDemoChat   = "/demo"
	PathOnboarding = "/onboarding"
	PathDashboard  = "/dashboard"
	PathClientHome = "/my"

	// PublicTenantPrefix matches public-facing tenant pages.
	PublicTenantPrefix = "/b/"
)

var publicPaths = map[string]struct{}{
	PathLanding:  {},
	PathLogin:    {},
	PathSignup:   {},
	PathDemoChat: {},
}

var ownerOnlyPrefixes = []string{PathDashboard, PathOnboarding}

var clientOnlyPrefixes = []string{PathClientHome}

// State is everything the resolver needs to decide a navigation. RoleHint is
// only meaningful immediately after an auth action; ambient navigation must
// leave it empty.
type State struct {
	Role            domain.ProfileRole
	HasActiveTenant bool
	IsAuthenticated bool
	Path            string
	RoleHint        domain.ProfileRole
}

// Decision is the outcome of resolving a navigation. RoleMismatch flags a
// hint that disagrees with the stored role; callers surface it, the hint is
// never written back.
type Decision struct {
	Allow        bool
	RedirectTo   string
	RoleMismatch bool
}

func allow() Decision { return Decision{Allow: true} }

func redirect(target string) Decision { return Decision{RedirectTo: target} }

// Resolve applies the transition table; the first matching rule wins. It is
// pure and deterministic: identical states yield identical decisions.
func Resolve(state State) Decision {
	path := normalize(state.Path)

	if isPublic(path) {
		return allow()
	}

	if !state.IsAuthenticated {
		return redirect(PathLogin)
	}

	role := state.Role
	mismatch := false
	if state.RoleHint != domain.ProfileRoleUnknown {
		if role != domain.ProfileRoleUnknown && role != state.RoleHint {
			mismatch = true
		}
		role = state.RoleHint
	}

	decision := resolveRole(role, state.HasActiveTenant, path)
	decision.RoleMismatch = mismatch
	return decision
}

func resolveRole(role domain.ProfileRole, hasActiveTenant bool, path string) Decision {
	switch role {
	case domain.ProfileRoleOwner:
		if !hasActiveTenant && !hasPrefix(path, PathOnboarding) {
			return redirect(PathOnboarding)
		}
		if hasActiveTenant && hasAnyPrefix(path, ownerOnlyPrefixes) {
			return allow()
		}
		if hasAnyPrefix(path, clientOnlyPrefixes) {
			return redirect(OwnerHome(hasActiveTenant))
		}
		return allow()
	case domain.ProfileRoleClient:
		if hasAnyPrefix(path, ownerOnlyPrefixes) {
			return redirect(PathClientHome)
		}
		return allow()
	default:
		// Profile not yet resolved or missing: land, never guess a role.
		return redirect(PathLanding)
	}
}

// OwnerHome is where an owner belongs: the dashboard once a tenant is
// active, onboarding until then.
func OwnerHome(hasActiveTenant bool) string {
	if hasActiveTenant {
		return PathDashboard
	}
	return PathOnboarding
}

func isPublic(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	return strings.HasPrefix(path, PublicTenantPrefix)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// hasPrefix matches whole path segments: /dashboard and /dashboard/leads,
// not /dashboardish.
func hasPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func normalize(path string) string {
	if path == "" {
		return PathLanding
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
