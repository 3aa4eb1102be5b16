package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deskhq/desk-session/internal/session"
)

const managerKey = "sessionManager"

// Auth resolves the session manager for the request's bearer token.
type Auth struct {
	Registry *session.Registry
}

// Attach resolves a manager when a bearer token is present, without
// requiring one. Anonymous requests pass through unauthenticated.
func (m *Auth) Attach(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		if mgr := m.Registry.Attach(c.Request.Context(), token); mgr != nil {
			c.Set(managerKey, mgr)
		}
	}
	c.Next()
}

// Require rejects requests that do not resolve to a live session.
func (m *Auth) Require(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer token required."})
		return
	}
	mgr := m.Registry.Attach(c.Request.Context(), token)
	if mgr == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "No active session for token."})
		return
	}
	c.Set(managerKey, mgr)
	c.Next()
}

// SetManager installs the session manager on the request context.
func SetManager(c *gin.Context, mgr *session.Manager) {
	c.Set(managerKey, mgr)
}

// GetManager extracts the session manager resolved for the request.
func GetManager(c *gin.Context) (*session.Manager, bool) {
	value, ok := c.Get(managerKey)
	if !ok {
		return nil, false
	}
	mgr, ok := value.(*session.Manager)
	return mgr, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
