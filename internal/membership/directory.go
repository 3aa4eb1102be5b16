package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deskhq/desk-session/internal/domain"
)

// Directory exposes the backend service's user/tenant queries.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	ListMemberships(ctx context.Context, userID string) ([]domain.BusinessMembership, error)
	// SetDefault clears every is_default flag for the user, then sets it on
	// the given business. Best-effort from the caller's point of view.
	SetDefault(ctx context.Context, userID, businessID string) error
}

// HTTPDirectory is the default Directory against the backend service.
type HTTPDirectory struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPDirectory constructs the backend directory client.
func NewHTTPDirectory(baseURL, apiKey string, client *http.Client) *HTTPDirectory {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPDirectory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

type profileRow struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type membershipRow struct {
	Role      string `json:"role"`
	IsDefault bool   `json:"is_default"`
	Business  struct {
		ID               string   `json:"id"`
		Slug             string   `json:"slug"`
		Name             string   `json:"name"`
		Phone            string   `json:"phone"`
		Industry         string   `json:"industry"`
		ServiceZipCodes  []string `json:"service_zip_codes"`
		IsActive         bool     `json:"is_active"`
		SubscriptionTier string   `json:"subscription_tier"`
	} `json:"business"`
}

// GetProfile loads the profile row for a user. A missing row is an error;
// the caller must treat the session as incomplete, never default the role.
func (d *HTTPDirectory) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var row profileRow
	if err := d.do(ctx, http.MethodGet, "/v1/users/"+userID+"/profile", nil, &row); err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	role := domain.ProfileRole(row.Role)
	if role != domain.ProfileRoleOwner && role != domain.ProfileRoleClient {
		return domain.Profile{}, fmt.Errorf("get profile: unknown role %q: %w", row.Role, domain.ErrProfileUnresolved)
	}
	return domain.Profile{UserID: row.UserID, Email: row.Email, Role: role, CreatedAt: row.CreatedAt}, nil
}

// ListMemberships returns the user's memberships joined with business rows.
func (d *HTTPDirectory) ListMemberships(ctx context.Context, userID string) ([]domain.BusinessMembership, error) {
	var rows []membershipRow
	if err := d.do(ctx, http.MethodGet, "/v1/users/"+userID+"/memberships", nil, &rows); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	memberships := make([]domain.BusinessMembership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, domain.BusinessMembership{
			UserID:     userID,
			BusinessID: row.Business.ID,
			Role:       domain.MembershipRole(row.Role),
			IsDefault:  row.IsDefault,
			Business: domain.Business{
				ID:               row.Business.ID,
				Slug:             row.Business.Slug,
				Name:             row.Business.Name,
				Phone:            row.Business.Phone,
				Industry:         row.Business.Industry,
				ServiceZipCodes:  row.Business.ServiceZipCodes,
				IsActive:         row.Business.IsActive,
				SubscriptionTier: row.Business.SubscriptionTier,
			},
		})
	}
	return memberships, nil
}

// SetDefault updates the durable is_default flag on the backend.
func (d *HTTPDirectory) SetDefault(ctx context.Context, userID, businessID string) error {
	body := map[string]string{"business_id": businessID}
	if err := d.do(ctx, http.MethodPost, "/v1/users/"+userID+"/memberships/default", body, nil); err != nil {
		return fmt.Errorf("set default membership: %w", err)
	}
	return nil
}

func (d *HTTPDirectory) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend status=%d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
