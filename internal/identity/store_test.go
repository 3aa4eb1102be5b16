package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/identity"
)

func TestSignInEmitsSignedIn(t *testing.T) {
	client := &fakeClient{session: validSession("u1")}
	store := identity.NewStore(client, zap.NewNop())

	var events []identity.Event
	unsubscribe := store.Subscribe(func(event identity.Event, _ *domain.Session) {
		events = append(events, event)
	})
	defer unsubscribe()

	session, err := store.SignIn(context.Background(), "a@b.test", "secret")
	require.NoError(t, err)
	require.Equal(t, "u1", session.User.ID)
	require.Equal(t, []identity.Event{identity.EventSignedIn}, events)
	require.NotNil(t, store.CurrentSession())
}

func TestSignOutEmitsSignedOutAndClears(t *testing.T) {
	client := &fakeClient{session: validSession("u1")}
	store := identity.NewStore(client, zap.NewNop())

	_, err := store.SignIn(context.Background(), "a@b.test", "secret")
	require.NoError(t, err)

	var gotEvent identity.Event
	var gotSession *domain.Session
	unsubscribe := store.Subscribe(func(event identity.Event, session *domain.Session) {
		gotEvent = event
		gotSession = session
	})
	defer unsubscribe()

	require.NoError(t, store.SignOut(context.Background()))
	require.Equal(t, identity.EventSignedOut, gotEvent)
	require.Nil(t, gotSession)
	require.Nil(t, store.CurrentSession())
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	client := &fakeClient{session: validSession("u1")}
	store := identity.NewStore(client, zap.NewNop())

	calls := 0
	unsubscribe := store.Subscribe(func(identity.Event, *domain.Session) { calls++ })
	unsubscribe()

	_, err := store.SignIn(context.Background(), "a@b.test", "secret")
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestSignInSurfacesTerminalRejection(t *testing.T) {
	client := &fakeClient{err: &identity.ProviderError{Status: 400, Body: "invalid_grant"}}
	store := identity.NewStore(client, zap.NewNop())

	_, err := store.SignIn(context.Background(), "a@b.test", "wrong")
	var provErr *identity.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.True(t, provErr.Terminal())
	require.Nil(t, store.CurrentSession())
}

func TestRestoreUnreachableProviderIsUnknownNotError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	store := identity.NewStore(client, zap.NewNop())

	session := store.Restore(context.Background(), signToken(t, "u1", time.Now().Add(time.Hour)))
	require.Nil(t, session)
	require.Nil(t, store.CurrentSession())
	// Distinguishable from plain signed-out for diagnostics.
	require.Error(t, store.LastError())
}

func TestRestoreRejectsExpiredToken(t *testing.T) {
	client := &fakeClient{user: &domain.User{ID: "u1"}}
	store := identity.NewStore(client, zap.NewNop())

	session := store.Restore(context.Background(), signToken(t, "u1", time.Now().Add(-time.Minute)))
	require.Nil(t, session)
	require.Zero(t, client.getUserCalls)
}

func TestParseAccessToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	session, err := identity.ParseAccessToken(signToken(t, "user-42", expiry))
	require.NoError(t, err)
	require.Equal(t, "user-42", session.User.ID)
	require.Equal(t, "user-42@example.test", session.User.Email)
	require.WithinDuration(t, expiry, session.ExpiresAt, time.Second)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	_, err := identity.ParseAccessToken("not-a-jwt")
	require.Error(t, err)
}

func signToken(t *testing.T, subject string, expiry time.Time) string {
	t.Helper()
	key := make([]byte, 32)
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: key}, (&gojose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)

	claims := gojwt.Claims{
		Subject: subject,
		Expiry:  gojwt.NewNumericDate(expiry),
	}
	custom := map[string]any{"email": subject + "@example.test"}
	token, err := gojwt.Signed(signer).Claims(claims).Claims(custom).Serialize()
	require.NoError(t, err)
	return token
}

func validSession(userID string) *domain.Session {
	return &domain.Session{
		AccessToken: "token-" + userID,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        domain.User{ID: userID, Email: userID + "@example.test"},
	}
}

type fakeClient struct {
	session      *domain.Session
	user         *domain.User
	err          error
	getUserCalls int
}

func (c *fakeClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func (c *fakeClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func (c *fakeClient) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	c.getUserCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.user, nil
}

func (c *fakeClient) SignOut(ctx context.Context, accessToken string) error {
	if c.err != nil {
		return c.err
	}
	return nil
}
