package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portal/internal/auth/models"
	"portal/internal/platform/i18n"
	"portal/pkg/requestcontext"
)

// run tracks one in-flight operation.
type run struct {
	op    operation
	gen   uint64
	start time.Time
	span  trace.Span
}

// begin moves to Loading and opens a span.
func (c *Coordinator) begin(ctx context.Context, op operation) (context.Context, *run) {
	ctx, span := c.tracer.Start(ctx, "coordinator."+string(op),
		trace.WithAttributes(attribute.String("auth.operation", string(op))))

	r := &run{op: op, start: time.Now(), span: span}
	r.gen = c.set(models.Loading())
	return ctx, r
}

// succeed records a successful operation and emits its notification.
func (c *Coordinator) succeed(ctx context.Context, r *run, titleKey, descKey string) {
	tag := requestcontext.Language(ctx)
	c.notifier.Notify(ctx, models.Notification{
		Kind:        models.NotificationSuccess,
		Title:       i18n.T(tag, titleKey),
		Description: i18n.T(tag, descKey),
	})
	c.metrics.ObserveAuth(string(r.op), "success", time.Since(r.start))
	r.span.SetStatus(codes.Ok, "")
	r.span.End()
}

// fail maps the cause, restores the last settled session, emits the failure
// notification and returns the error for the caller.
func (c *Coordinator) fail(ctx context.Context, r *run, titleKey string, cause error) error {
	err := c.newError(ctx, r.op, cause)
	c.settle()

	tag := requestcontext.Language(ctx)
	c.notifier.Notify(ctx, models.Notification{
		Kind:        models.NotificationFailure,
		Title:       i18n.T(tag, titleKey),
		Description: i18n.T(tag, kindDescriptions[err.Kind]),
	})
	c.logger.InfoContext(ctx, "auth operation failed",
		"operation", string(r.op),
		"kind", string(err.Kind),
		"provider_code", err.ProviderCode,
		"request_id", requestcontext.RequestID(ctx),
	)
	c.metrics.ObserveAuth(string(r.op), string(err.Kind), time.Since(r.start))
	r.span.RecordError(cause)
	r.span.SetStatus(codes.Error, string(err.Kind))
	r.span.End()
	return err
}

// SignUp creates an account and writes its profile with displayName. Password
// strength is the caller's and the provider's concern.
func (c *Coordinator) SignUp(ctx context.Context, email, password, displayName string) error {
	ctx, r := c.begin(ctx, opSignUp)

	p, err := c.identity.CreateAccount(ctx, email, password)
	if err != nil {
		return c.fail(ctx, r, "auth.signUpError", err)
	}
	if err := c.afterSignUp(ctx, *p, displayName); err != nil {
		return c.fail(ctx, r, "auth.signUpError", err)
	}
	signedIn := *p
	if signedIn.DisplayName == "" {
		signedIn.DisplayName = displayName
	}
	c.set(models.Authenticated(signedIn))

	c.succeed(ctx, r, "auth.signUpSuccess", "auth.welcomeMessage")
	return nil
}

// SignIn verifies credentials for an existing account.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	ctx, r := c.begin(ctx, opSignIn)

	p, err := c.identity.VerifyCredentials(ctx, email, password)
	if err != nil {
		return c.fail(ctx, r, "auth.signInError", err)
	}
	if err := c.afterSignIn(ctx, *p); err != nil {
		return c.fail(ctx, r, "auth.signInError", err)
	}
	c.set(models.Authenticated(*p))

	c.succeed(ctx, r, "auth.signInSuccess", "auth.welcomeBack")
	return nil
}

// SignInWithSocialProvider completes an interactive consent flow with kind.
func (c *Coordinator) SignInWithSocialProvider(ctx context.Context, kind models.ProviderKind, resp models.ConsentResponse) error {
	ctx, r := c.begin(ctx, opSocialSignIn)
	r.span.SetAttributes(attribute.String("auth.provider", string(kind)))

	p, err := c.identity.InteractiveConsent(ctx, kind, resp)
	if err != nil {
		return c.fail(ctx, r, "auth.signInError", err)
	}
	if err := c.afterSignIn(ctx, *p); err != nil {
		return c.fail(ctx, r, "auth.signInError", err)
	}
	c.set(models.Authenticated(*p))

	c.succeed(ctx, r, "auth.signInSuccess", "auth.welcomeBack")
	return nil
}

// SignOut terminates the provider session. The transition to Unauthenticated
// arrives through the ambient channel, not from this call.
func (c *Coordinator) SignOut(ctx context.Context) error {
	ctx, r := c.begin(ctx, opSignOut)

	if err := c.identity.TerminateSession(ctx); err != nil {
		return c.fail(ctx, r, "auth.signOutError", err)
	}
	c.settleIfUnchanged(r.gen)

	c.succeed(ctx, r, "auth.signOutSuccess", "auth.comeBackSoon")
	return nil
}

// ResetPassword asks the provider to send a reset message to email.
func (c *Coordinator) ResetPassword(ctx context.Context, email string) error {
	ctx, r := c.begin(ctx, opResetPassword)

	if err := c.identity.RequestPasswordReset(ctx, email); err != nil {
		return c.fail(ctx, r, "auth.resetPasswordError", err)
	}
	c.settleIfUnchanged(r.gen)

	c.succeed(ctx, r, "auth.resetPasswordSuccess", "auth.resetPasswordEmailSent")
	return nil
}
