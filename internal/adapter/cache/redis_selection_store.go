package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskhq/desk-session/internal/domain"
	"github.com/deskhq/desk-session/internal/tenant"
)

// RedisSelectionStore implements tenant.SelectionStore backed by Redis.
// Keys are scoped per user so one user's switch never leaks into another's
// session. Cross-client coherence of a selection is a known gap.
type RedisSelectionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ tenant.SelectionStore = (*RedisSelectionStore)(nil)

// NewRedisSelectionStore constructs a Redis-backed selection store.
func NewRedisSelectionStore(client redis.UniversalClient, ttl time.Duration) *RedisSelectionStore {
	return &RedisSelectionStore{client: client, ttl: ttl}
}

func selectionKey(userID string) string {
	return "tenant:selection:" + userID
}

// Get loads the persisted business id for the user.
func (s *RedisSelectionStore) Get(ctx context.Context, userID string) (string, error) {
	id, err := s.client.Get(ctx, selectionKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", domain.ErrSelectionNotFound
		}
		return "", fmt.Errorf("load tenant selection: %w", err)
	}
	return id, nil
}

// Put overwrites the persisted business id for the user.
func (s *RedisSelectionStore) Put(ctx context.Context, userID, businessID string) error {
	if err := s.client.Set(ctx, selectionKey(userID), businessID, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist tenant selection: %w", err)
	}
	return nil
}

// Delete removes the persisted selection.
func (s *RedisSelectionStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, selectionKey(userID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete tenant selection: %w", err)
	}
	return nil
}
