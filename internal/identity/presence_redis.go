package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"portal/internal/auth/models"
	redisclient "portal/internal/platform/redis"
)

const (
	presenceKeyPrefix     = "portal:presence:"
	presenceUserPrefix    = "portal:presence:user:"
	presenceChannelPrefix = "portal:presence:events:"
)

// RedisPresence stores presence in Redis and fans changes out over Pub/Sub, so
// every server instance sharing the Redis observes the same sessions.
// Notifications are delivered on a per-subscription goroutine.
type RedisPresence struct {
	client *redisclient.Client
	logger *slog.Logger
}

func NewRedisPresence(client *redisclient.Client, logger *slog.Logger) *RedisPresence {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPresence{client: client, logger: logger}
}

func (s *RedisPresence) Get(ctx context.Context, clientKey string) (*models.Principal, error) {
	raw, err := s.client.Get(ctx, presenceKeyPrefix+clientKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get presence: %w", err)
	}
	return decodePresence(raw)
}

func (s *RedisPresence) Set(ctx context.Context, clientKey string, p models.Principal) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	prev, err := s.Get(ctx, clientKey)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev != nil && prev.UID != p.UID {
			pipe.SRem(ctx, presenceUserPrefix+prev.UID, clientKey)
		}
		pipe.Set(ctx, presenceKeyPrefix+clientKey, payload, 0)
		pipe.SAdd(ctx, presenceUserPrefix+p.UID, clientKey)
		pipe.Publish(ctx, presenceChannelPrefix+clientKey, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (s *RedisPresence) Clear(ctx context.Context, clientKey string) error {
	prev, err := s.Get(ctx, clientKey)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceKeyPrefix+clientKey)
		pipe.SRem(ctx, presenceUserPrefix+prev.UID, clientKey)
		pipe.Publish(ctx, presenceChannelPrefix+clientKey, "null")
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}
	return nil
}

func (s *RedisPresence) ClearUser(ctx context.Context, uid string) error {
	keys, err := s.client.SMembers(ctx, presenceUserPrefix+uid).Result()
	if err != nil {
		return fmt.Errorf("list user presence: %w", err)
	}
	for _, k := range keys {
		if err := s.Clear(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe confirms the Pub/Sub subscription before reading the current value,
// so no change between the two is lost. A change racing the read may be
// delivered twice.
func (s *RedisPresence) Subscribe(ctx context.Context, clientKey string, fn func(*models.Principal)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, presenceChannelPrefix+clientKey)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe presence: %w", err)
	}
	current, err := s.Get(ctx, clientKey)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	fn(current)

	done := make(chan struct{})
	msgs := pubsub.Channel()
	go func() {
		defer close(done)
		for msg := range msgs {
			p, err := decodePresence([]byte(msg.Payload))
			if err != nil {
				s.logger.Warn("dropping malformed presence message",
					"channel", msg.Channel,
					"error", err,
				)
				continue
			}
			fn(p)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

func decodePresence(raw []byte) (*models.Principal, error) {
	var p *models.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode presence: %w", err)
	}
	return p, nil
}
