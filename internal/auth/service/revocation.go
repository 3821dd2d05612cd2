package service

import (
	"context"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storeline/internal/auth/domain"
	"github.com/smallbiznis/storeline/internal/clock"
)

const keyRevokedToken = "auth:revoked:"

// NewRevocationStore uses Redis when a client is configured and falls back
// to process memory otherwise.
func NewRevocationStore(client *redis.Client, clk clock.Clock) domain.RevocationStore {
	if client == nil {
		return NewMemoryRevocationStore(clk)
	}
	return &redisRevocationStore{client: client}
}

type redisRevocationStore struct {
	client *redis.Client
}

func (s *redisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, keyRevokedToken+strings.TrimSpace(tokenID), "1", ttl).Err()
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyRevokedToken+strings.TrimSpace(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevocationStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	revoked map[string]time.Time
}

func NewMemoryRevocationStore(clk clock.Clock) domain.RevocationStore {
	return &memoryRevocationStore{clock: clk, revoked: map[string]time.Time{}}
}

func (s *memoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = s.clock.Now().Add(ttl)
	return nil
}

func (s *memoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.clock.Now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
