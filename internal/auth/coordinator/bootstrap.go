package coordinator

import (
	"context"
	"errors"
	"fmt"

	"portal/internal/auth/models"
	"portal/internal/platform/i18n"
	"portal/pkg/platform/sentinel"
	"portal/pkg/requestcontext"
)

// afterSignUp is the post-authentication hook for a newly created account: the
// profile is written unconditionally with the display name from the form.
func (c *Coordinator) afterSignUp(ctx context.Context, p models.Principal, displayName string) error {
	c.bootstrapMu.Lock()
	defer c.bootstrapMu.Unlock()

	doc := models.ProfileDocument{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: displayName,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := c.profiles.Create(ctx, doc); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	c.ensured[p.UID] = struct{}{}
	c.metrics.IncrementProfilesCreated()
	return nil
}

// afterSignIn is the post-authentication hook for existing accounts: the profile
// is created from the principal's fields only when absent.
func (c *Coordinator) afterSignIn(ctx context.Context, p models.Principal) error {
	c.bootstrapMu.Lock()
	defer c.bootstrapMu.Unlock()
	return c.ensureProfileLocked(ctx, p)
}

// ensureProfileOnce runs the lazy check-then-create at most once per principal
// between two absence notifications. A store failure is logged and reported to
// the client but does not hold back the ambient session.
func (c *Coordinator) ensureProfileOnce(ctx context.Context, p models.Principal) {
	c.bootstrapMu.Lock()
	defer c.bootstrapMu.Unlock()
	if _, ok := c.ensured[p.UID]; ok {
		return
	}
	if err := c.ensureProfileLocked(ctx, p); err != nil {
		c.logger.ErrorContext(ctx, "failed to ensure profile",
			"error", err,
			"uid", p.UID,
			"request_id", requestcontext.RequestID(ctx),
		)
		tag := requestcontext.Language(ctx)
		c.notifier.Notify(ctx, models.Notification{
			Kind:        models.NotificationFailure,
			Title:       i18n.T(tag, "profile.loadError"),
			Description: i18n.T(tag, "auth.unknownError"),
		})
	}
}

func (c *Coordinator) ensureProfileLocked(ctx context.Context, p models.Principal) error {
	_, err := c.profiles.Get(ctx, p.UID)
	switch {
	case err == nil:
		c.ensured[p.UID] = struct{}{}
		return nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return fmt.Errorf("load profile: %w", err)
	}

	doc := models.ProfileDocument{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := c.profiles.Create(ctx, doc); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	c.ensured[p.UID] = struct{}{}
	c.metrics.IncrementProfilesCreated()
	return nil
}
