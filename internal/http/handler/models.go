package handler

import (
	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/session"
)

// BusinessView is the business payload returned to clients.
type BusinessView struct {
	ID               string   `json:"id"`
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	Phone            string   `json:"phone,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	ServiceZipCodes  []string `json:"service_zip_codes,omitempty"`
	IsActive         bool     `json:"is_active"`
	SubscriptionTier string   `json:"subscription_tier,omitempty"`
}

// MembershipView pairs a business with the caller's role in it.
type MembershipView struct {
	Role      string       `json:"role"`
	IsDefault bool         `json:"is_default"`
	Business  BusinessView `json:"business"`
}

// SessionView is the resolved session snapshot returned to clients.
type SessionView struct {
	Authenticated   bool             `json:"authenticated"`
	User            *UserView        `json:"user,omitempty"`
	Role            string           `json:"role,omitempty"`
	Businesses      []MembershipView `json:"businesses"`
	CurrentBusiness *BusinessView    `json:"current_business,omitempty"`
	MembershipRole  string           `json:"membership_role,omitempty"`
	BusinessLoading bool             `json:"business_loading"`
}

// UserView represents lightweight user identity data.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

func businessView(b domain.Business) BusinessView {
	return BusinessView{
		ID:               b.ID,
		Slug:             b.Slug,
		Name:             b.Name,
		Phone:            b.Phone,
		Industry:         b.Industry,
		ServiceZipCodes:  b.ServiceZipCodes,
		IsActive:         b.IsActive,
		SubscriptionTier: b.SubscriptionTier,
	}
}

func snapshotView(snap session.Snapshot) SessionView {
	view := SessionView{
		Authenticated:   snap.Authenticated,
		Role:            string(snap.Role),
		MembershipRole:  string(snap.MembershipRole),
		BusinessLoading: snap.BusinessLoading,
		Businesses:      make([]MembershipView, 0, len(snap.Businesses)),
	}
	if snap.User != nil {
		view.User = &UserView{ID: snap.User.ID, Email: snap.User.Email}
	}
	for _, m := range snap.Businesses {
		view.Businesses = append(view.Businesses, MembershipView{
			Role:      string(m.Role),
			IsDefault: m.IsDefault,
			Business:  businessView(m.Business),
		})
	}
	if snap.CurrentBusiness != nil {
		b := businessView(*snap.CurrentBusiness)
		view.CurrentBusiness = &b
	}
	return view
}
