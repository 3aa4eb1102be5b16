package domain

import "time"

// MembershipRole is the per-business role granted by a membership.
type MembershipRole string

const (
	MembershipRoleOwner MembershipRole = "owner"
	MembershipRoleStaff MembershipRole = "staff"
)

// Business represents a tenant. Owned by the backend service; treated as
// read-only reference data fetched per session.
type Business struct {
	ID               string
	Slug             string
	Name             string
	Phone            string
	Industry         string
	ServiceZipCodes  []string
	IsActive         bool
	SubscriptionTier string
	CreatedAt        time.Time
}

// BusinessMembership links a user to a business with an independent role.
// At most one membership per user carries IsDefault; the selection policy
// enforces this, not the store.
type BusinessMembership struct {
	UserID     string
	BusinessID string
	Role       MembershipRole
	IsDefault  bool
	CreatedAt  time.Time

	Business Business
}
