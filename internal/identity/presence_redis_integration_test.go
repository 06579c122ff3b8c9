//go:build integration

package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"portal/internal/auth/models"
	"portal/internal/identity"
	"portal/internal/platform/logger"
	"portal/pkg/testutil/containers"
)

type RedisPresenceSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisPresenceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisPresenceSuite))
}

func (s *RedisPresenceSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisPresenceSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

type presenceLog struct {
	mu   sync.Mutex
	seen []*models.Principal
}

func (l *presenceLog) record(p *models.Principal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, p)
}

func (l *presenceLog) snapshot() []*models.Principal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*models.Principal(nil), l.seen...)
}

// Two instances share Redis: a sign-in on one reaches the subscriber on the other.
func (s *RedisPresenceSuite) TestChangesCrossInstances() {
	ctx := context.Background()
	writer := identity.NewRedisPresence(s.redis.Client, logger.Discard())
	reader := identity.NewRedisPresence(s.redis.Connect(s.T()), logger.Discard())

	log := &presenceLog{}
	unsubscribe, err := reader.Subscribe(ctx, "client-a", log.record)
	s.Require().NoError(err)
	defer unsubscribe()

	s.Require().Eventually(func() bool { return len(log.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Nil(log.snapshot()[0], "current absence is delivered first")

	s.Require().NoError(writer.Set(ctx, "client-a", models.Principal{UID: "u1", Email: "ada@example.com"}))
	s.Require().Eventually(func() bool { return len(log.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	s.Require().NotNil(log.snapshot()[1])
	s.Equal("u1", log.snapshot()[1].UID)

	s.Require().NoError(writer.ClearUser(ctx, "u1"))
	s.Require().Eventually(func() bool {
		seen := log.snapshot()
		return len(seen) == 3 && seen[2] == nil
	}, 2*time.Second, 10*time.Millisecond)

	got, err := reader.Get(ctx, "client-a")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisPresenceSuite) TestUnsubscribeStopsDelivery() {
	ctx := context.Background()
	presence := identity.NewRedisPresence(s.redis.Client, logger.Discard())

	log := &presenceLog{}
	unsubscribe, err := presence.Subscribe(ctx, "client-b", log.record)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return len(log.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	unsubscribe()

	s.Require().NoError(presence.Set(ctx, "client-b", models.Principal{UID: "u2"}))
	time.Sleep(100 * time.Millisecond)
	s.Len(log.snapshot(), 1)
}
