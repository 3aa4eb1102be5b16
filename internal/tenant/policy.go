package tenant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
)

// SelectActiveTenant chooses the active business from a membership set.
// Order: the persisted choice if still a member, else the is_default
// membership, else the first membership in insertion order, else nil.
func SelectActiveTenant(memberships []domain.BusinessMembership, persistedID string) *domain.Business {
	if len(memberships) == 0 {
		return nil
	}
	if persistedID != "" {
		for i := range memberships {
			if memberships[i].BusinessID == persistedID {
				return &memberships[i].Business
			}
		}
	}
	for i := range memberships {
		if memberships[i].IsDefault {
			return &memberships[i].Business
		}
	}
	return &memberships[0].Business
}

// Policy applies the selection algorithm and keeps the persisted choice in
// sync with it.
type Policy struct {
	selections SelectionStore
	logger     *zap.Logger
}

// NewPolicy creates a selection policy over the given store.
func NewPolicy(selections SelectionStore, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.L()
	}
	return &Policy{selections: selections, logger: logger}
}

// Select derives the active tenant for the user and persists the outcome,
// overwriting any previous value. A persisted id that no longer appears in
// the membership set indicates upstream drift and is logged before the
// deterministic fallback applies.
func (p *Policy) Select(ctx context.Context, userID string, memberships []domain.BusinessMembership) *domain.Business {
	persisted, err := p.selections.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrSelectionNotFound) {
		p.logger.Warn("read persisted tenant selection", zap.String("user_id", userID), zap.Error(err))
		persisted = ""
	}

	chosen := SelectActiveTenant(memberships, persisted)
	if chosen == nil {
		if err := p.selections.Delete(ctx, userID); err != nil {
			p.logger.Warn("clear tenant selection", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}

	if persisted != "" && persisted != chosen.ID {
		p.logger.Warn("persisted tenant no longer in membership set",
			zap.String("user_id", userID),
			zap.String("persisted_id", persisted),
			zap.String("selected_id", chosen.ID))
	}
	// Unconditional write: re-selecting the same tenant refreshes the
	// entry's TTL so active users never lose their selection to expiry.
	if err := p.selections.Put(ctx, userID, chosen.ID); err != nil {
		p.logger.Warn("persist tenant selection", zap.String("user_id", userID), zap.Error(err))
	}
	return chosen
}

// Switch validates the target against the membership set and persists it.
// The remote default-flag update is the caller's concern; its failure never
// rolls this back.
func (p *Policy) Switch(ctx context.Context, userID string, memberships []domain.BusinessMembership, businessID string) (*domain.Business, error) {
	var target *domain.Business
	for i := range memberships {
		if memberships[i].BusinessID == businessID {
			target = &memberships[i].Business
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNotMember
	}

	// Repeating a switch to the current tenant changes nothing observable;
	// the write still lands so the entry's TTL is refreshed.
	if err := p.selections.Put(ctx, userID, businessID); err != nil {
		p.logger.Warn("persist tenant selection", zap.String("user_id", userID), zap.Error(err))
	}
	return target, nil
}

// Clear drops the persisted selection for the user.
func (p *Policy) Clear(ctx context.Context, userID string) {
	if err := p.selections.Delete(ctx, userID); err != nil {
		p.logger.Warn("clear tenant selection", zap.String("user_id", userID), zap.Error(err))
	}
}
