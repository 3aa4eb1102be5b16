package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/routing"
	"github.com/deskhq/desk-session/internal/session"
)

// GuardStatus is the settled-ness of a guard evaluation.
type GuardStatus string

const (
	GuardLoading  GuardStatus = "loading"
	GuardAllow    GuardStatus = "allow"
	GuardRedirect GuardStatus = "redirect"
)

// Evaluate applies the route resolver to the manager's current state. While
// identity or membership state is unsettled it reports loading and no
// redirect, so callers never flicker through a wrong destination. Once
// settled the outcome is exactly one of allow or a single redirect.
func Evaluate(mgr *session.Manager, path string, roleHint domain.ProfileRole) (GuardStatus, routing.Decision) {
	if mgr == nil {
		decision := routing.Resolve(routing.State{Path: path})
		if decision.Allow {
			return GuardAllow, decision
		}
		return GuardRedirect, decision
	}

	snap := mgr.Snapshot()
	if snap.Authenticated && snap.BusinessLoading {
		return GuardLoading, routing.Decision{}
	}

	decision := mgr.ResolveRedirect(path, roleHint)
	if decision.Allow {
		return GuardAllow, decision
	}
	return GuardRedirect, decision
}

// Guard protects a page group: loading state is reported without a
// redirect, disallowed requests receive one redirect, allowed requests fall
// through to the handler. prefix is the group mount point, stripped before
// resolution so it does not leak into route decisions.
func Guard(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.TrimPrefix(c.Request.URL.Path, prefix)
		mgr, _ := GetManager(c)
		status, decision := Evaluate(mgr, path, domain.ProfileRoleUnknown)
		switch status {
		case GuardLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": string(GuardLoading)})
		case GuardRedirect:
			c.Header("Location", decision.RedirectTo)
			c.AbortWithStatusJSON(http.StatusTemporaryRedirect, gin.H{
				"status":   string(GuardRedirect),
				"redirect": decision.RedirectTo,
			})
		default:
			c.Next()
		}
	}
}
