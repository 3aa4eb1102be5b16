package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
)

// Event identifies a session state change.
type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// Listener receives session change notifications. The session argument is
// nil for EventSignedOut.
type Listener func(event Event, session *domain.Session)

// Store wraps the identity provider for a single session scope. It is
// constructed explicitly per scope, never held as a process-wide singleton.
type Store struct {
	client Client
	logger *zap.Logger

	mu        sync.Mutex
	session   *domain.Session
	lastErr   error
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a session store bound to the provider client.
func NewStore(client Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.L()
	}
	return &Store{
		client:    client,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// CurrentSession returns the active session, or nil when there is none or
// the provider state is unknown. Callers gate on nil exactly as they would
// on signed-out; LastError distinguishes the two for diagnostics.
func (s *Store) CurrentSession() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil && s.session.Expired(time.Now()) {
		return nil
	}
	return s.session
}

// LastError reports the most recent provider failure, if any.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers a listener for session changes and returns its
// unsubscribe function.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignIn authenticates with the provider and installs the session.
// Terminal rejections are returned to the caller; they are never retried.
func (s *Store) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	s.install(session)
	return session, nil
}

// SignUp registers the account and installs the resulting session.
func (s *Store) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.Session, error) {
	session, err := s.client.SignUp(ctx, email, password, metadata)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	s.install(session)
	return session, nil
}

// Restore adopts an existing provider token, verifying it against the
// provider. An unreachable provider leaves the store empty rather than
// failing: unknown is gated identically to signed-out.
func (s *Store) Restore(ctx context.Context, accessToken string) *domain.Session {
	session, err := ParseAccessToken(accessToken)
	if err != nil {
		s.recordError(err)
		return nil
	}
	if session.Expired(time.Now()) {
		return nil
	}

	user, err := s.client.GetUser(ctx, accessToken)
	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) && provErr.Terminal() {
			s.logger.Warn("token rejected by identity provider", zap.Error(err))
			s.recordError(err)
			return nil
		}
		s.logger.Error("identity provider unreachable, treating session as unknown", zap.Error(err))
		s.recordError(err)
		return nil
	}

	session.User = *user
	s.install(session)
	return session
}

// SignOut revokes the provider session and clears local state. The local
// clear happens even when revocation fails.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	var revokeErr error
	if session != nil {
		if err := s.client.SignOut(ctx, session.AccessToken); err != nil {
			s.logger.Warn("provider sign-out failed", zap.Error(err))
			revokeErr = err
		}
	}

	s.mu.Lock()
	s.session = nil
	s.lastErr = nil
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(EventSignedOut, nil)
	}
	return revokeErr
}

func (s *Store) install(session *domain.Session) {
	s.mu.Lock()
	s.session = session
	s.lastErr = nil
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(EventSignedIn, session)
	}
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// snapshotListeners must be called with s.mu held.
func (s *Store) snapshotListeners() []Listener {
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}
