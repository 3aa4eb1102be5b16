package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/http/middleware"
	"github.com/deskhq/desk-session/internal/identity"
	"github.com/deskhq/desk-session/internal/rbac"
	"github.com/deskhq/desk-session/internal/routing"
	"github.com/deskhq/desk-session/internal/session"
)

// SessionHandler exposes the session and routing surface to page-facing
// consumers.
type SessionHandler struct {
	Registry *session.Registry
	Logger   *zap.Logger
}

// NewSessionHandler creates the handler set.
func NewSessionHandler(registry *session.Registry, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &SessionHandler{Registry: registry, Logger: logger}
}

type credentialsRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	RoleHint      string `json:"role_hint"`
	RequestedPath string `json:"requested_path"`
}

// Login authenticates with the identity provider and reports the initial
// post-auth redirect. The role hint from the form overrides the stored role
// for this first decision only.
func (h *SessionHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}

	mgr, sess, err := h.Registry.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	mgr.WaitSettled(c.Request.Context())
	h.writeAuthSuccess(c, mgr, sess, req.RoleHint, req.RequestedPath)
}

// Signup registers an account; the role hint is recorded as provider
// metadata for the backend's profile creation and drives the first redirect.
func (h *SessionHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}

	var metadata map[string]any
	if req.RoleHint != "" {
		metadata = map[string]any{"role": req.RoleHint}
	}
	mgr, sess, err := h.Registry.SignUp(c.Request.Context(), req.Email, req.Password, metadata)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	mgr.WaitSettled(c.Request.Context())
	h.writeAuthSuccess(c, mgr, sess, req.RoleHint, req.RequestedPath)
}

func (h *SessionHandler) writeAuthSuccess(c *gin.Context, mgr *session.Manager, sess *domain.Session, roleHint, requestedPath string) {
	if requestedPath == "" {
		requestedPath = routing.PathDashboard
	}
	decision := mgr.ResolveRedirect(requestedPath, domain.ProfileRole(roleHint))

	resp := gin.H{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"token_type":    sess.TokenType,
		"expires_at":    sess.ExpiresAt.Unix(),
		"session":       snapshotView(mgr.Snapshot()),
		"redirect_to":   redirectTarget(decision, requestedPath),
	}
	if decision.RoleMismatch {
		resp["role_mismatch"] = true
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) writeAuthError(c *gin.Context, err error) {
	var provErr *identity.ProviderError
	if errors.As(err, &provErr) && provErr.Terminal() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Sign-in was rejected."})
		return
	}
	h.Logger.Error("identity provider failure during auth", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "provider_unavailable", "error_description": "Identity provider unavailable."})
}

// Logout revokes the session and clears all tenant state.
func (h *SessionHandler) Logout(c *gin.Context) {
	mgr, ok := middleware.GetManager(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "No active session."})
		return
	}
	if err := h.Registry.SignOut(c.Request.Context(), mgr); err != nil {
		// Local state is already cleared; report the revocation failure.
		h.Logger.Warn("provider revocation failed on logout", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// Current returns the resolved session snapshot, or an anonymous view.
func (h *SessionHandler) Current(c *gin.Context) {
	mgr, ok := middleware.GetManager(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, snapshotView(mgr.Snapshot()))
}

type switchRequest struct {
	BusinessID string `json:"business_id" binding:"required"`
}

// Switch changes the active tenant for the session.
func (h *SessionHandler) Switch(c *gin.Context) {
	mgr, ok := middleware.GetManager(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "No active session."})
		return
	}
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}

	if err := mgr.SwitchBusiness(c.Request.Context(), req.BusinessID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_member", "error_description": "Business is outside the membership set."})
		case errors.Is(err, domain.ErrNoSession):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "No active session."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, snapshotView(mgr.Snapshot()))
}

type linksRequest struct {
	Links []rbac.Link `json:"links" binding:"required"`
}

// Links filters a navigation link set against the active membership role.
func (h *SessionHandler) Links(c *gin.Context) {
	mgr, ok := middleware.GetManager(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "No active session."})
		return
	}
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": mgr.AuthorizedLinks(req.Links)})
}

// Resolve computes the guard decision for a requested path. While the
// session is still resolving it reports loading and no redirect. Ambient
// navigation carries no role hint; hints apply only to the redirect computed
// in the login and signup responses.
func (h *SessionHandler) Resolve(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "path query parameter required."})
		return
	}

	mgr, _ := middleware.GetManager(c)
	status, decision := middleware.Evaluate(mgr, path, domain.ProfileRoleUnknown)

	resp := gin.H{"status": string(status)}
	if status == middleware.GuardRedirect {
		resp["redirect"] = decision.RedirectTo
	}
	c.JSON(http.StatusOK, resp)
}

func redirectTarget(decision routing.Decision, requestedPath string) string {
	if decision.Allow {
		return requestedPath
	}
	return decision.RedirectTo
}
