package session

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/identity"
	"github.com/deskhq/desk-session/internal/membership"
	"github.com/deskhq/desk-session/internal/rbac"
	"github.com/deskhq/desk-session/internal/routing"
	"github.com/deskhq/desk-session/internal/tenant"
)

// Manager owns the session-scoped state machine: identity, profile role,
// membership set, and active tenant. It is constructed explicitly per
// session scope and torn down on sign-out; there are no ambient singletons.
//
// Manager is the single writer of its state. Loads run in goroutines but
// commit through the epoch check, so results from a superseded session are
// dropped rather than applied.
type Manager struct {
	store     *identity.Store
	loader    *membership.Loader
	policy    *tenant.Policy
	directory membership.Directory
	node      *snowflake.Node
	logger    *zap.Logger

	mu              sync.Mutex
	epoch           int64
	userID          string
	profile         *domain.Profile
	memberships     []domain.BusinessMembership
	activeBusiness  *domain.Business
	businessLoading bool
	settled         chan struct{}
	unsubscribe     func()
}

// Snapshot is a read-only view of the resolved session state exposed to
// page-facing consumers.
type Snapshot struct {
	Authenticated   bool
	User            *domain.User
	Role            domain.ProfileRole
	Businesses      []domain.BusinessMembership
	CurrentBusiness *domain.Business
	MembershipRole  domain.MembershipRole
	BusinessLoading bool
}

// NewManager wires a session scope over the shared collaborators.
func NewManager(client identity.Client, directory membership.Directory, selections tenant.SelectionStore, node *snowflake.Node, membershipTimeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	policy := tenant.NewPolicy(selections, logger)
	m := &Manager{
		store:     identity.NewStore(client, logger),
		loader:    membership.NewLoader(directory, membershipTimeout, logger),
		policy:    policy,
		directory: directory,
		node:      node,
		logger:    logger,
	}
	m.unsubscribe = m.store.Subscribe(m.onAuthChange)
	return m
}

// Store exposes the identity session store for this scope.
func (m *Manager) Store() *identity.Store {
	return m.store
}

// Close detaches the manager from session notifications.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Manager) onAuthChange(event identity.Event, session *domain.Session) {
	switch event {
	case identity.EventSignedIn:
		m.begin(session)
	case identity.EventSignedOut:
		m.clear()
	}
}

// begin starts a new session epoch and kicks off the membership and profile
// resolution for it.
func (m *Manager) begin(session *domain.Session) {
	epoch := m.node.Generate().Int64()

	m.mu.Lock()
	m.epoch = epoch
	m.userID = session.User.ID
	m.profile = nil
	m.memberships = nil
	m.activeBusiness = nil
	m.businessLoading = true
	m.settled = make(chan struct{})
	m.mu.Unlock()

	go m.resolve(epoch, session.User.ID)
}

func (m *Manager) resolve(epoch int64, userID string) {
	ctx := context.Background()

	var (
		profile    *domain.Profile
		profileErr error
		result     membership.Result
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profileCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		p, err := m.directory.GetProfile(profileCtx, userID)
		if err != nil {
			profileErr = err
			return
		}
		profile = &p
	}()
	go func() {
		defer wg.Done()
		result = m.loader.Load(ctx, epoch, userID)
	}()
	wg.Wait()

	if profileErr != nil {
		// Incomplete session: role stays unresolved, never defaulted.
		m.logger.Warn("profile resolution failed",
			zap.String("user_id", userID), zap.Int64("epoch", epoch), zap.Error(profileErr))
	}

	m.commit(epoch, userID, profile, result)
}

// commit applies a resolution outcome unless a newer epoch superseded it.
// The selection read/write runs under the lock, after the epoch check, so it
// serializes with the sign-out clear: a superseded resolution can neither
// apply state nor touch the persisted selection.
func (m *Manager) commit(epoch int64, userID string, profile *domain.Profile, result membership.Result) {
	selectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		m.logger.Debug("discarding stale membership resolution",
			zap.Int64("epoch", epoch), zap.Int64("current_epoch", m.epoch))
		return
	}
	active := m.policy.Select(selectCtx, userID, result.Memberships)
	m.profile = profile
	m.memberships = result.Memberships
	m.activeBusiness = active
	m.businessLoading = false
	if m.settled != nil {
		close(m.settled)
		m.settled = nil
	}
}

// clear drops all tenant state and the persisted selection. Runs on
// sign-out; the epoch bump invalidates any in-flight resolution, and the
// selection delete happens under the same lock the commit path writes
// through, so an overlapping commit and clear resolve in lock order with the
// delete winning.
func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID := m.userID
	m.epoch = m.node.Generate().Int64()
	m.userID = ""
	m.profile = nil
	m.memberships = nil
	m.activeBusiness = nil
	m.businessLoading = false
	if m.settled != nil {
		close(m.settled)
		m.settled = nil
	}

	if userID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		m.policy.Clear(ctx, userID)
	}
}

// SignIn authenticates and starts the session lifecycle.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return m.store.SignIn(ctx, email, password)
}

// SignUp registers and starts the session lifecycle.
func (m *Manager) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.Session, error) {
	return m.store.SignUp(ctx, email, password, metadata)
}

// Restore adopts a bearer token issued by the identity provider.
func (m *Manager) Restore(ctx context.Context, accessToken string) *domain.Session {
	return m.store.Restore(ctx, accessToken)
}

// SignOut revokes the session and tears down tenant state.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.store.SignOut(ctx)
}

// WaitSettled blocks until the current epoch's membership resolution has
// committed, bounded by ctx. The loader's own timeout guarantees the wait
// is finite even when the backend is down.
func (m *Manager) WaitSettled(ctx context.Context) {
	m.mu.Lock()
	loading := m.businessLoading
	ch := m.settled
	m.mu.Unlock()
	if !loading || ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// Snapshot returns the current resolved view of the session.
func (m *Manager) Snapshot() Snapshot {
	session := m.store.CurrentSession()

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		BusinessLoading: m.businessLoading,
		Businesses:      m.memberships,
		CurrentBusiness: m.activeBusiness,
	}
	if session != nil {
		snap.Authenticated = true
		user := session.User
		snap.User = &user
	}
	if m.profile != nil {
		snap.Role = m.profile.Role
	}
	if m.activeBusiness != nil {
		snap.MembershipRole = m.membershipRoleLocked(m.activeBusiness.ID)
	}
	return snap
}

// membershipRoleLocked must be called with m.mu held.
func (m *Manager) membershipRoleLocked(businessID string) domain.MembershipRole {
	for i := range m.memberships {
		if m.memberships[i].BusinessID == businessID {
			return m.memberships[i].Role
		}
	}
	return ""
}

// SwitchBusiness changes the active tenant. Local state and the persisted
// selection move together inside the critical section; the durable
// is_default update on the backend is fire-and-forget and its failure never
// rolls the switch back.
func (m *Manager) SwitchBusiness(ctx context.Context, businessID string) error {
	m.mu.Lock()
	userID := m.userID
	if userID == "" {
		m.mu.Unlock()
		return domain.ErrNoSession
	}

	target, err := m.policy.Switch(ctx, userID, m.memberships, businessID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.activeBusiness = target
	for i := range m.memberships {
		m.memberships[i].IsDefault = m.memberships[i].BusinessID == businessID
	}
	m.mu.Unlock()

	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.directory.SetDefault(updateCtx, userID, businessID); err != nil {
			m.logger.Warn("default membership update failed, local switch stands",
				zap.String("user_id", userID), zap.String("business_id", businessID), zap.Error(err))
		}
	}()
	return nil
}

// HasPermission checks the membership role of the active tenant.
func (m *Manager) HasPermission(perm rbac.Permission) bool {
	snap := m.Snapshot()
	return rbac.HasPermission(snap.MembershipRole, perm)
}

// AuthorizedLinks filters navigation links against the active membership
// role.
func (m *Manager) AuthorizedLinks(links []rbac.Link) []rbac.Link {
	snap := m.Snapshot()
	return rbac.FilterAuthorizedLinks(snap.MembershipRole, links)
}

// ResolveRedirect computes the navigation decision for a requested path.
// roleHint overrides the stored role for the initial post-auth redirect
// only; a disagreement is logged and surfaced in the decision, never
// written back.
func (m *Manager) ResolveRedirect(path string, roleHint domain.ProfileRole) routing.Decision {
	snap := m.Snapshot()
	decision := routing.Resolve(routing.State{
		Role:            snap.Role,
		HasActiveTenant: snap.CurrentBusiness != nil,
		IsAuthenticated: snap.Authenticated,
		Path:            path,
		RoleHint:        roleHint,
	})
	if decision.RoleMismatch {
		m.logger.Warn("role hint disagrees with stored profile role",
			zap.String("hint", string(roleHint)), zap.String("stored", string(snap.Role)))
	}
	return decision
}
