package session

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/config"
	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/identity"
	"github.com/deskhq/desk-session/internal/membership"
	"github.com/deskhq/desk-session/internal/tenant"
)

// Registry tracks one Manager per authenticated user. Managers are created
// on sign-in or first bearer sighting and torn down on sign-out, giving each
// top-level session a defined init and teardown.
type Registry struct {
	client     identity.Client
	directory  membership.Directory
	selections tenant.SelectionStore
	node       *snowflake.Node
	timeout    time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry builds the session registry from shared collaborators.
func NewRegistry(client identity.Client, directory membership.Directory, selections tenant.SelectionStore, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *Registry {
	return &Registry{
		client:     client,
		directory:  directory,
		selections: selections,
		node:       node,
		timeout:    cfg.MembershipTimeout,
		logger:     logger,
		managers:   make(map[string]*Manager),
	}
}

func (r *Registry) newManager() *Manager {
	return NewManager(r.client, r.directory, r.selections, r.node, r.timeout, r.logger)
}

// SignIn authenticates and installs a manager for the user. An existing
// manager for the same user is replaced so the new session starts from a
// fresh epoch.
func (r *Registry) SignIn(ctx context.Context, email, password string) (*Manager, *domain.Session, error) {
	mgr := r.newManager()
	session, err := mgr.SignIn(ctx, email, password)
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	r.install(session.User.ID, mgr)
	return mgr, session, nil
}

// SignUp registers an account and installs its manager.
func (r *Registry) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Manager, *domain.Session, error) {
	mgr := r.newManager()
	session, err := mgr.SignUp(ctx, email, password, metadata)
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	r.install(session.User.ID, mgr)
	return mgr, session, nil
}

// Attach resolves the manager for a bearer token, restoring one when the
// token is seen for the first time (e.g. after a gateway restart). Returns
// nil when the token does not map to a live session.
func (r *Registry) Attach(ctx context.Context, accessToken string) *Manager {
	parsed, err := identity.ParseAccessToken(accessToken)
	if err != nil {
		r.logger.Debug("unparseable bearer token", zap.Error(err))
		return nil
	}

	r.mu.Lock()
	mgr, ok := r.managers[parsed.User.ID]
	r.mu.Unlock()
	if ok && mgr.Store().CurrentSession() != nil {
		return mgr
	}

	mgr = r.newManager()
	if session := mgr.Restore(ctx, accessToken); session == nil {
		mgr.Close()
		return nil
	}
	r.install(parsed.User.ID, mgr)
	return mgr
}

// SignOut tears down the user's manager after revoking the session.
func (r *Registry) SignOut(ctx context.Context, mgr *Manager) error {
	snap := mgr.Snapshot()
	err := mgr.SignOut(ctx)
	if snap.User != nil {
		r.remove(snap.User.ID)
	}
	mgr.Close()
	return err
}

func (r *Registry) install(userID string, mgr *Manager) {
	r.mu.Lock()
	if old, ok := r.managers[userID]; ok && old != mgr {
		old.Close()
	}
	r.managers[userID] = mgr
	r.mu.Unlock()
}

func (r *Registry) remove(userID string) {
	r.mu.Lock()
	delete(r.managers, userID)
	r.mu.Unlock()
}
