package domain

import "time"

// ProfileRole is the whole-system identity role carried by a Profile.
type ProfileRole string

const (
	ProfileRoleOwner  ProfileRole = "owner"
	ProfileRoleClient ProfileRole = "client"
	// ProfileRoleUnknown marks a session whose profile has not resolved.
	// It is never treated as client by default.
	ProfileRoleUnknown ProfileRole = ""
)

// User is a read-only reference to an identity-provider account.
type User struct {
	ID    string
	Email string
}

// Session holds token material issued by the identity provider.
// Ephemeral; invalidated on sign-out or expiry and never persisted here.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Profile carries the system-level role for a user. One row per user,
// created out-of-band at signup; this service only reads it.
type Profile struct {
	UserID    string
	Email     string
	Role      ProfileRole
	CreatedAt time.Time
}
