package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"portal/internal/auth/coordinator"
	"portal/internal/auth/models"
	"portal/internal/auth/profile"
	"portal/internal/identity"
	"portal/internal/platform/config"
	"portal/internal/platform/logger"
)

type RegistrySuite struct {
	suite.Suite
	provider *identity.Provider
	registry *Registry
	now      time.Time
	builds   int
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.provider = identity.New(config.IdentityConfig{
		MinPasswordLength: 6,
		MaxFailedAttempts: 5,
		AttemptWindow:     time.Minute,
		ResetTokenTTL:     time.Hour,
	}, identity.WithLogger(logger.Discard()))
	profiles := profile.NewInMemoryStore()
	s.builds = 0
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.registry = New(func(clientKey string, notifier coordinator.Notifier) *coordinator.Coordinator {
		s.builds++
		return coordinator.New(s.provider.Client(clientKey), profiles, notifier,
			coordinator.WithLogger(logger.Discard()))
	}, 10*time.Minute, WithLogger(logger.Discard()))
	s.registry.now = func() time.Time { return s.now }
}

func (s *RegistrySuite) TearDownTest() {
	s.registry.Close()
}

func (s *RegistrySuite) TestAcquireReusesCoordinatorPerClient() {
	ctx := context.Background()
	a1, err := s.registry.Acquire(ctx, "client-a")
	s.Require().NoError(err)
	defer a1.Release()
	a2, err := s.registry.Acquire(ctx, "client-a")
	s.Require().NoError(err)
	defer a2.Release()
	b, err := s.registry.Acquire(ctx, "client-b")
	s.Require().NoError(err)
	defer b.Release()

	s.Same(a1.Coordinator, a2.Coordinator)
	s.NotSame(a1.Coordinator, b.Coordinator)
	s.Equal(2, s.builds)
	s.Equal(2, s.registry.Len())
	s.Equal(models.StateUnauthenticated, a1.Session().State, "started coordinators resolve the ambient session")
}

func (s *RegistrySuite) TestSweepExpiresOnlyIdleUnleased() {
	ctx := context.Background()
	idle, err := s.registry.Acquire(ctx, "idle")
	s.Require().NoError(err)
	idle.Release()
	idle.Release()
	busy, err := s.registry.Acquire(ctx, "busy")
	s.Require().NoError(err)

	s.now = s.now.Add(11 * time.Minute)
	s.Equal(1, s.registry.Sweep())
	s.Equal(1, s.registry.Len())

	busy.Release()
	s.now = s.now.Add(11 * time.Minute)
	s.Equal(1, s.registry.Sweep())
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestInboxCollectsOperationNotifications() {
	ctx := context.Background()
	sess, err := s.registry.Acquire(ctx, "client-a")
	s.Require().NoError(err)
	defer sess.Release()

	s.Require().NoError(sess.SignUp(ctx, "ada@example.com", "secret1", "Ada"))
	s.Require().Error(sess.SignIn(ctx, "ada@example.com", "wrong-pass"))

	notes := sess.Inbox.Drain()
	s.Require().Len(notes, 2)
	s.Equal(models.NotificationSuccess, notes[0].Kind)
	s.Equal(models.NotificationFailure, notes[1].Kind)
	s.Empty(sess.Inbox.Drain())
}

func (s *RegistrySuite) TestAmbientSessionSharedAcrossClientsOfOneUser() {
	ctx := context.Background()
	a, err := s.registry.Acquire(ctx, "client-a")
	s.Require().NoError(err)
	defer a.Release()
	s.Require().NoError(a.SignUp(ctx, "ada@example.com", "secret1", "Ada"))
	uid := a.Session().Principal.UID

	s.Require().NoError(s.provider.RevokeUser(ctx, uid))
	s.Equal(models.StateUnauthenticated, a.Session().State, "revocation reaches the coordinator")
}

func (s *RegistrySuite) TestClosedRegistryRejectsAcquire() {
	s.registry.Close()
	_, err := s.registry.Acquire(context.Background(), "client-a")
	s.True(errors.Is(err, ErrClosed))
}

func (s *RegistrySuite) TestCloseSignalsLeasedSessions() {
	sess, err := s.registry.Acquire(context.Background(), "client-a")
	s.Require().NoError(err)
	defer sess.Release()

	select {
	case <-sess.Done():
		s.FailNow("done before close")
	default:
	}

	s.registry.Close()
	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		s.FailNow("leased session not signalled on close")
	}
	s.registry.Close()
}

func (s *RegistrySuite) TestInboxDropsOldest() {
	inbox := NewInbox()
	for i := range inboxCapacity + 2 {
		inbox.Notify(context.Background(), models.Notification{Title: string(rune('a' + i))})
	}
	notes := inbox.Drain()
	s.Len(notes, inboxCapacity)
	s.Equal("c", notes[0].Title)
}
