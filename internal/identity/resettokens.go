package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "portal/internal/platform/redis"
	"portal/pkg/platform/sentinel"
)

// InMemoryResetTokenStore keeps reset tokens in process.
type InMemoryResetTokenStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]resetToken
}

type resetToken struct {
	uid       string
	expiresAt time.Time
}

func NewInMemoryResetTokenStore() *InMemoryResetTokenStore {
	return &InMemoryResetTokenStore{now: time.Now, tokens: make(map[string]resetToken)}
}

func (s *InMemoryResetTokenStore) Save(_ context.Context, tokenHash, uid string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = resetToken{uid: uid, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryResetTokenStore) Consume(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenHash]
	if !ok {
		return "", fmt.Errorf("reset token: %w", sentinel.ErrNotFound)
	}
	delete(s.tokens, tokenHash)
	if !s.now().Before(tok.expiresAt) {
		return "", fmt.Errorf("reset token: %w", sentinel.ErrExpired)
	}
	return tok.uid, nil
}

const resetTokenPrefix = "portal:reset:"

// RedisResetTokenStore keeps reset tokens in Redis with a TTL and consumes them
// atomically with GETDEL.
type RedisResetTokenStore struct {
	client *redisclient.Client
}

func NewRedisResetTokenStore(client *redisclient.Client) *RedisResetTokenStore {
	return &RedisResetTokenStore{client: client}
}

func (s *RedisResetTokenStore) Save(ctx context.Context, tokenHash, uid string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetTokenPrefix+tokenHash, uid, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// Consume never reports ErrExpired: Redis evicts lapsed tokens, so they read as absent.
func (s *RedisResetTokenStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	uid, err := s.client.GetDel(ctx, resetTokenPrefix+tokenHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("reset token: %w", sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return uid, nil
}
