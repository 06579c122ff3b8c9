package coordinator

//go:generate mockgen -source=coordinator.go -destination=mocks/mocks.go -package=mocks IdentityClient,ProfileStore,Notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/language"

	"portal/internal/auth/coordinator/mocks"
	"portal/internal/auth/models"
	"portal/internal/auth/profile"
	"portal/internal/platform/logger"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/platform/sentinel"
	"portal/pkg/requestcontext"
)

type providerErr string

func (e providerErr) Error() string        { return "identity: " + string(e) }
func (e providerErr) ProviderCode() string { return string(e) }

type recordingNotifier struct {
	mu  sync.Mutex
	got []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.got...)
}

type CoordinatorSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	identity     *mocks.MockIdentityClient
	profiles     *mocks.MockProfileStore
	notes        *recordingNotifier
	coord        *Coordinator
	ambient      func(*models.Principal)
	unsubscribed bool
	now          time.Time
	ctx          context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.identity = mocks.NewMockIdentityClient(s.ctrl)
	s.profiles = mocks.NewMockProfileStore(s.ctrl)
	s.notes = &recordingNotifier{}
	s.unsubscribed = false
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithLanguage(requestcontext.WithTime(context.Background(), s.now), language.English)
	s.coord = New(s.identity, s.profiles, s.notes, WithLogger(logger.Discard()))

	s.identity.EXPECT().SubscribeAmbientSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*models.Principal)) (func(), error) {
			s.ambient = fn
			fn(nil)
			return func() { s.unsubscribed = true }, nil
		})
	s.Require().NoError(s.coord.Start(s.ctx))
}

func principal(uid, email string) models.Principal {
	return models.Principal{UID: uid, Email: email}
}

func (s *CoordinatorSuite) expectProfileExists(uid string) {
	s.profiles.EXPECT().Get(gomock.Any(), uid).Return(&models.ProfileDocument{UID: uid}, nil).AnyTimes()
}

func (s *CoordinatorSuite) TestInitialResolution() {
	s.Run("new coordinator starts loading", func() {
		c := New(s.identity, s.profiles, s.notes)
		s.Equal(models.StateLoading, c.Session().State)
	})

	s.Run("absence on subscribe resolves to unauthenticated", func() {
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})
}

func (s *CoordinatorSuite) TestAmbientSequenceDeterminesState() {
	p1 := principal("uid-1", "one@example.com")
	p2 := principal("uid-2", "two@example.com")
	s.expectProfileExists(p1.UID)
	s.expectProfileExists(p2.UID)

	sequences := [][]*models.Principal{
		{&p1},
		{&p1, nil},
		{nil, &p2},
		{&p1, &p2},
		{&p1, nil, &p1},
		{&p2, &p1, nil, nil},
		{nil, nil, &p2, &p2},
	}
	for _, seq := range sequences {
		for _, p := range seq {
			s.ambient(p)
		}
		last := seq[len(seq)-1]
		if last == nil {
			s.Equal(models.Unauthenticated(), s.coord.Session())
			continue
		}
		got := s.coord.Session()
		s.Equal(models.StateAuthenticated, got.State)
		s.Require().NotNil(got.Principal)
		s.Equal(last.UID, got.Principal.UID)
	}
}

func (s *CoordinatorSuite) TestAmbientLazyProfileCreate() {
	p := principal("uid-1", "one@example.com")
	p.DisplayName = "One"

	gomock.InOrder(
		s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, sentinel.ErrNotFound),
		s.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, doc models.ProfileDocument) error {
				s.Equal(p.UID, doc.UID)
				s.Equal(p.Email, doc.Email)
				s.Equal("One", doc.DisplayName)
				s.False(doc.CreatedAt.IsZero())
				return nil
			}),
		// a new observation window after absence checks again
		s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(&models.ProfileDocument{UID: p.UID}, nil),
	)

	s.ambient(&p)
	s.ambient(&p)
	s.Equal(models.StateAuthenticated, s.coord.Session().State)

	s.ambient(nil)
	s.ambient(&p)
	s.Equal(models.StateAuthenticated, s.coord.Session().State)
}

func (s *CoordinatorSuite) TestAmbientProfileFailureDoesNotBlockSession() {
	p := principal("uid-1", "one@example.com")
	s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, errors.New("db down"))

	s.ambient(&p)

	s.Equal(models.StateAuthenticated, s.coord.Session().State)
	notes := s.notes.all()
	s.Require().Len(notes, 1)
	s.Equal(models.NotificationFailure, notes[0].Kind)
	s.Equal("Your profile could not be loaded", notes[0].Title)
}

func (s *CoordinatorSuite) TestProfileStoreFailureFailsOperation() {
	storeDown := errors.New("store down")

	assertUnknownFailure := func(err error, title string) {
		s.Require().Error(err)
		s.Equal(models.ErrorKindUnknown, KindOf(err))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorIs(err, storeDown)
		s.Equal(models.Unauthenticated(), s.coord.Session())

		notes := s.notes.all()
		s.Require().Len(notes, 1)
		s.Equal(models.NotificationFailure, notes[0].Kind)
		s.Equal(title, notes[0].Title)
		s.Equal("Something went wrong. Please try again.", notes[0].Description)
	}

	s.Run("sign up when the profile write fails", func() {
		s.notes.got = nil
		p := principal("uid-new", "new@example.com")
		s.identity.EXPECT().CreateAccount(gomock.Any(), p.Email, "secret1").Return(&p, nil)
		s.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storeDown)

		assertUnknownFailure(s.coord.SignUp(s.ctx, p.Email, "secret1", "Ann"), "Sign up failed")
	})

	s.Run("sign in when the profile read fails", func() {
		s.notes.got = nil
		p := principal("uid-1", "one@example.com")
		s.identity.EXPECT().VerifyCredentials(gomock.Any(), p.Email, "secret1").Return(&p, nil)
		s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, storeDown)

		assertUnknownFailure(s.coord.SignIn(s.ctx, p.Email, "secret1"), "Sign in failed")
	})

	s.Run("social sign in when the profile read fails", func() {
		s.notes.got = nil
		p := principal("google-uid", "g@example.com")
		s.identity.EXPECT().InteractiveConsent(gomock.Any(), models.ProviderGoogle, gomock.Any()).Return(&p, nil)
		s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, storeDown)

		err := s.coord.SignInWithSocialProvider(s.ctx, models.ProviderGoogle, models.ConsentResponse{Code: "code"})
		assertUnknownFailure(err, "Sign in failed")
	})

	s.Run("social sign in when the profile create fails", func() {
		s.notes.got = nil
		p := principal("google-uid", "g@example.com")
		s.identity.EXPECT().InteractiveConsent(gomock.Any(), models.ProviderGoogle, gomock.Any()).Return(&p, nil)
		gomock.InOrder(
			s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, sentinel.ErrNotFound),
			s.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storeDown),
		)

		err := s.coord.SignInWithSocialProvider(s.ctx, models.ProviderGoogle, models.ConsentResponse{Code: "code"})
		assertUnknownFailure(err, "Sign in failed")
	})
}

func (s *CoordinatorSuite) TestSignUp() {
	s.Run("creates profile with display name and authenticates", func() {
		p := principal("uid-new", "new@example.com")
		s.identity.EXPECT().CreateAccount(gomock.Any(), "new@example.com", "secret1").Return(&p, nil)
		s.profiles.EXPECT().Create(gomock.Any(), models.ProfileDocument{
			UID:         "uid-new",
			Email:       "new@example.com",
			DisplayName: "Ann",
			CreatedAt:   s.now,
		}).Return(nil)

		err := s.coord.SignUp(s.ctx, "new@example.com", "secret1", "Ann")
		s.Require().NoError(err)

		got := s.coord.Session()
		s.Equal(models.StateAuthenticated, got.State)
		s.Equal("uid-new", got.Principal.UID)
		s.Equal("Ann", got.Principal.DisplayName)

		notes := s.notes.all()
		s.Require().Len(notes, 1)
		s.Equal(models.NotificationSuccess, notes[0].Kind)
		s.Equal("Account created", notes[0].Title)
		s.Equal("Welcome! Your account is ready.", notes[0].Description)
	})
}

func (s *CoordinatorSuite) TestSignUpPassesShortPasswordThrough() {
	// length rules belong to the form and the provider, not the coordinator
	p := principal("uid-short", "short@example.com")
	s.identity.EXPECT().CreateAccount(gomock.Any(), "short@example.com", "abc").Return(&p, nil)
	s.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	s.Require().NoError(s.coord.SignUp(s.ctx, "short@example.com", "abc", "Short"))
	s.Equal(models.StateAuthenticated, s.coord.Session().State)
}

func (s *CoordinatorSuite) TestSignUpFailures() {
	tests := []struct {
		name string
		err  error
		kind models.ErrorKind
		code dErrors.Code
		desc string
	}{
		{"email in use", providerErr("auth/email-already-in-use"), models.ErrorKindAccountExists, dErrors.CodeConflict, "An account with this email already exists."},
		{"invalid email", providerErr("auth/invalid-email"), models.ErrorKindInvalidEmail, dErrors.CodeInvalidInput, "The email address is not valid."},
		{"weak password", providerErr("auth/weak-password"), models.ErrorKindWeakPassword, dErrors.CodeInvalidInput, "The password is too weak."},
		{"unlisted code", providerErr("auth/wrong-password"), models.ErrorKindUnknown, dErrors.CodeInternal, "Something went wrong. Please try again."},
		{"unexpected shape", errors.New("socket closed"), models.ErrorKindUnknown, dErrors.CodeInternal, "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.notes.got = nil
			s.identity.EXPECT().CreateAccount(gomock.Any(), "x@example.com", "secret1").Return(nil, tt.err)

			err := s.coord.SignUp(s.ctx, "x@example.com", "secret1", "X")

			s.Require().Error(err)
			s.Equal(tt.kind, KindOf(err))
			s.True(dErrors.HasCode(err, tt.code))
			s.ErrorIs(err, tt.err)
			s.Equal(models.Unauthenticated(), s.coord.Session())

			notes := s.notes.all()
			s.Require().Len(notes, 1)
			s.Equal(models.NotificationFailure, notes[0].Kind)
			s.Equal("Sign up failed", notes[0].Title)
			s.Equal(tt.desc, notes[0].Description)
		})
	}
}

func (s *CoordinatorSuite) TestSignIn() {
	s.Run("wrong password fails with invalid credentials", func() {
		s.notes.got = nil
		s.identity.EXPECT().VerifyCredentials(gomock.Any(), "x@example.com", "wrong").
			Return(nil, providerErr("auth/wrong-password"))

		err := s.coord.SignIn(s.ctx, "x@example.com", "wrong")

		s.Require().Error(err)
		s.Equal(models.ErrorKindInvalidCredentials, KindOf(err))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(models.Unauthenticated(), s.coord.Session())
		notes := s.notes.all()
		s.Require().Len(notes, 1)
		s.Equal(models.NotificationFailure, notes[0].Kind)
		s.Equal("Invalid email or password.", notes[0].Description)
	})

	s.Run("success runs lazy profile check and authenticates", func() {
		p := principal("uid-1", "one@example.com")
		gomock.InOrder(
			s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, sentinel.ErrNotFound),
			s.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		)
		s.identity.EXPECT().VerifyCredentials(gomock.Any(), "one@example.com", "secret1").Return(&p, nil)

		s.Require().NoError(s.coord.SignIn(s.ctx, "one@example.com", "secret1"))
		s.Equal(models.Authenticated(p), s.coord.Session())
	})
}

func (s *CoordinatorSuite) TestSignInErrorMapping() {
	tests := map[string]models.ErrorKind{
		"auth/user-not-found":     models.ErrorKindInvalidCredentials,
		"auth/wrong-password":     models.ErrorKindInvalidCredentials,
		"auth/invalid-credential": models.ErrorKindInvalidCredentials,
		"auth/invalid-email":      models.ErrorKindInvalidEmail,
		"auth/too-many-requests":  models.ErrorKindRateLimited,
		"auth/popup-blocked":      models.ErrorKindUnknown,
	}
	for code, kind := range tests {
		s.Run(code, func() {
			s.identity.EXPECT().VerifyCredentials(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, providerErr(code))
			err := s.coord.SignIn(s.ctx, "x@example.com", "pw")
			s.Equal(kind, KindOf(err))
		})
	}
}

func (s *CoordinatorSuite) TestSocialSignIn() {
	resp := models.ConsentResponse{Code: "code", Verifier: "verifier"}

	s.Run("dismissed and blocked consent", func() {
		s.identity.EXPECT().InteractiveConsent(gomock.Any(), models.ProviderGoogle, gomock.Any()).
			Return(nil, providerErr("auth/popup-closed-by-user"))
		err := s.coord.SignInWithSocialProvider(s.ctx, models.ProviderGoogle, models.ConsentResponse{Error: "access_denied"})
		s.Equal(models.ErrorKindConsentDismissed, KindOf(err))

		s.identity.EXPECT().InteractiveConsent(gomock.Any(), models.ProviderGoogle, gomock.Any()).
			Return(nil, providerErr("auth/popup-blocked"))
		err = s.coord.SignInWithSocialProvider(s.ctx, models.ProviderGoogle, resp)
		s.Equal(models.ErrorKindConsentBlocked, KindOf(err))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})

	s.Run("success creates the profile inline when absent", func() {
		p := principal("google-uid", "g@example.com")
		p.DisplayName = "Gee"
		s.identity.EXPECT().InteractiveConsent(gomock.Any(), models.ProviderGoogle, resp).Return(&p, nil)
		gomock.InOrder(
			s.profiles.EXPECT().Get(gomock.Any(), p.UID).Return(nil, sentinel.ErrNotFound),
			s.profiles.EXPECT().Create(gomock.Any(), models.ProfileDocument{
				UID: p.UID, Email: p.Email, DisplayName: "Gee", CreatedAt: s.now,
			}).Return(nil),
		)

		s.Require().NoError(s.coord.SignInWithSocialProvider(s.ctx, models.ProviderGoogle, resp))
		s.Equal(models.Authenticated(p), s.coord.Session())
	})
}

func (s *CoordinatorSuite) signedIn(p models.Principal) {
	s.expectProfileExists(p.UID)
	s.ambient(&p)
	s.Require().Equal(models.StateAuthenticated, s.coord.Session().State)
}

func (s *CoordinatorSuite) TestSignOut() {
	p := principal("uid-1", "one@example.com")

	s.Run("ambient absence delivered during the call", func() {
		s.signedIn(p)
		s.identity.EXPECT().TerminateSession(gomock.Any()).DoAndReturn(func(context.Context) error {
			s.ambient(nil)
			return nil
		})

		s.Require().NoError(s.coord.SignOut(s.ctx))
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})

	s.Run("ambient absence delivered after the call", func() {
		s.signedIn(p)
		s.identity.EXPECT().TerminateSession(gomock.Any()).Return(nil)

		s.Require().NoError(s.coord.SignOut(s.ctx))
		// the operation does not force the state itself
		s.Equal(models.StateAuthenticated, s.coord.Session().State)

		s.ambient(nil)
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})

	s.Run("provider failure keeps the session", func() {
		s.signedIn(p)
		s.identity.EXPECT().TerminateSession(gomock.Any()).Return(errors.New("network"))

		err := s.coord.SignOut(s.ctx)
		s.Equal(models.ErrorKindUnknown, KindOf(err))
		s.Equal(models.StateAuthenticated, s.coord.Session().State)
	})

	s.Run("concurrent sign outs do not fail", func() {
		s.signedIn(p)
		var once sync.Once
		s.identity.EXPECT().TerminateSession(gomock.Any()).Times(2).DoAndReturn(func(context.Context) error {
			once.Do(func() { s.ambient(nil) })
			return nil
		})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.coord.SignOut(s.ctx)
			}()
		}
		wg.Wait()

		s.NoError(errs[0])
		s.NoError(errs[1])
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})
}

func (s *CoordinatorSuite) TestResetPassword() {
	s.Run("success leaves session untouched", func() {
		s.notes.got = nil
		s.identity.EXPECT().RequestPasswordReset(gomock.Any(), "one@example.com").Return(nil)

		s.Require().NoError(s.coord.ResetPassword(s.ctx, "one@example.com"))
		s.Equal(models.Unauthenticated(), s.coord.Session())
		notes := s.notes.all()
		s.Require().Len(notes, 1)
		s.Equal("Check your inbox", notes[0].Title)
	})

	s.Run("failures", func() {
		for code, kind := range map[string]models.ErrorKind{
			"auth/user-not-found":    models.ErrorKindUserNotFound,
			"auth/invalid-email":     models.ErrorKindInvalidEmail,
			"auth/too-many-requests": models.ErrorKindUnknown,
		} {
			s.identity.EXPECT().RequestPasswordReset(gomock.Any(), gomock.Any()).Return(providerErr(code))
			err := s.coord.ResetPassword(s.ctx, "x@example.com")
			s.Equal(kind, KindOf(err), code)
			s.Equal(models.Unauthenticated(), s.coord.Session())
		}
	})
}

func (s *CoordinatorSuite) TestLocalizedFailure() {
	ctx := requestcontext.WithLanguage(s.ctx, language.Spanish)
	s.identity.EXPECT().VerifyCredentials(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, providerErr("auth/invalid-credential"))

	err := s.coord.SignIn(ctx, "x@example.com", "pw")

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("Correo o contraseña incorrectos.", de.Message)
	notes := s.notes.all()
	s.Equal("Error al iniciar sesión", notes[len(notes)-1].Title)
}

func (s *CoordinatorSuite) TestSubscribersObserveTransitionsInOrder() {
	var mu sync.Mutex
	var seen []models.State
	unsubscribe := s.coord.Subscribe(func(sess models.Session) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, sess.State)
	})

	p := principal("uid-1", "one@example.com")
	s.expectProfileExists(p.UID)
	s.identity.EXPECT().VerifyCredentials(gomock.Any(), gomock.Any(), gomock.Any()).Return(&p, nil)
	s.Require().NoError(s.coord.SignIn(s.ctx, "one@example.com", "secret1"))

	unsubscribe()
	s.ambient(nil)

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]models.State{
		models.StateUnauthenticated,
		models.StateLoading,
		models.StateAuthenticated,
	}, seen)
}

func (s *CoordinatorSuite) TestCloseUnsubscribes() {
	s.coord.Close()
	s.coord.Close()
	s.True(s.unsubscribed)
}

// The coordinator does not serialize operations. These cases document where the
// session lands when two sign-ins overlap.
func (s *CoordinatorSuite) TestConcurrentSignIns() {
	pA := principal("uid-a", "a@example.com")
	pB := principal("uid-b", "b@example.com")
	s.expectProfileExists(pA.UID)
	s.expectProfileExists(pB.UID)

	overlap := func(resultA, resultB func() (*models.Principal, error), aFirst bool) {
		startedA, startedB := make(chan struct{}), make(chan struct{})
		releaseA, releaseB := make(chan struct{}), make(chan struct{})
		s.identity.EXPECT().VerifyCredentials(gomock.Any(), "a@example.com", gomock.Any()).
			DoAndReturn(func(context.Context, string, string) (*models.Principal, error) {
				close(startedA)
				<-releaseA
				return resultA()
			})
		s.identity.EXPECT().VerifyCredentials(gomock.Any(), "b@example.com", gomock.Any()).
			DoAndReturn(func(context.Context, string, string) (*models.Principal, error) {
				close(startedB)
				<-releaseB
				return resultB()
			})

		doneA, doneB := make(chan error, 1), make(chan error, 1)
		go func() { doneA <- s.coord.SignIn(s.ctx, "a@example.com", "pw") }()
		go func() { doneB <- s.coord.SignIn(s.ctx, "b@example.com", "pw") }()
		<-startedA
		<-startedB
		s.Equal(models.StateLoading, s.coord.Session().State)

		if aFirst {
			close(releaseA)
			<-doneA
			close(releaseB)
			<-doneB
		} else {
			close(releaseB)
			<-doneB
			close(releaseA)
			<-doneA
		}
	}
	succeedA := func() (*models.Principal, error) { return &pA, nil }
	succeedB := func() (*models.Principal, error) { return &pB, nil }
	failA := func() (*models.Principal, error) { return nil, providerErr("auth/wrong-password") }
	failB := func() (*models.Principal, error) { return nil, providerErr("auth/wrong-password") }

	s.Run("success then failure keeps the success", func() {
		s.ambient(nil)
		overlap(succeedA, failB, true)
		s.Equal(models.Authenticated(pA), s.coord.Session())
	})

	s.Run("failure then success ends authenticated", func() {
		s.ambient(nil)
		overlap(failA, succeedB, true)
		s.Equal(models.Authenticated(pB), s.coord.Session())
	})

	s.Run("two successes: the last completion wins", func() {
		s.ambient(nil)
		overlap(succeedA, succeedB, false)
		s.Equal(models.Authenticated(pA), s.coord.Session())
	})

	s.Run("two failures end unauthenticated", func() {
		s.ambient(nil)
		overlap(failA, failB, true)
		s.Equal(models.Unauthenticated(), s.coord.Session())
	})
}

func TestSignUpNotifiesThroughNotifierPort(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity := mocks.NewMockIdentityClient(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	store := profile.NewInMemoryStore()

	p := principal("uid-1", "ann@example.com")
	identity.EXPECT().CreateAccount(gomock.Any(), "ann@example.com", "secret1").Return(&p, nil)
	notifier.EXPECT().Notify(gomock.Any(), models.Notification{
		Kind:        models.NotificationSuccess,
		Title:       "Account created",
		Description: "Welcome! Your account is ready.",
	})

	c := New(identity, store, notifier, WithLogger(logger.Discard()))
	require.NoError(t, c.SignUp(context.Background(), "ann@example.com", "secret1", "Ann"))

	doc, err := store.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", doc.DisplayName)
}

func TestLazyProfileCreateIsIdempotent(t *testing.T) {
	store := profile.NewInMemoryStore()
	c := New(nil, store, &recordingNotifier{}, WithLogger(logger.Discard()))
	p := models.Principal{UID: "uid-1", Email: "one@example.com", DisplayName: "One"}

	c.afterSignIn(context.Background(), p)
	first, err := store.Get(context.Background(), p.UID)
	require.NoError(t, err)

	p.DisplayName = "Changed"
	c.afterSignIn(context.Background(), p)
	second, err := store.Get(context.Background(), p.UID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}
