package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I sign up as "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.signUp)
	ctx.Step(`^I sign up with a unique email and password "([^"]*)"$`, steps.signUpUnique)
	ctx.Step(`^I sign in with the same credentials$`, steps.signInSame)
	ctx.Step(`^I sign in with email "([^"]*)" and password "([^"]*)"$`, steps.signIn)
	ctx.Step(`^I sign out$`, steps.signOut)
	ctx.Step(`^I request a password reset for "([^"]*)"$`, steps.requestReset)
	ctx.Step(`^the session state should become "([^"]*)"$`, steps.sessionStateBecomes)
}

type authSteps struct {
	tc       TestContext
	email    string
	password string
}

func (s *authSteps) signUp(_ context.Context, name, email, password string) error {
	s.email, s.password = email, password
	return s.tc.POST("/api/auth/signup", map[string]any{
		"name":            name,
		"email":           email,
		"password":        password,
		"confirmPassword": password,
	})
}

func (s *authSteps) signUpUnique(ctx context.Context, password string) error {
	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	return s.signUp(ctx, "E2E User", email, password)
}

func (s *authSteps) signInSame(ctx context.Context) error {
	return s.signIn(ctx, s.email, s.password)
}

func (s *authSteps) signIn(_ context.Context, email, password string) error {
	return s.tc.POST("/api/auth/signin", map[string]any{
		"email":    email,
		"password": password,
	})
}

func (s *authSteps) signOut(context.Context) error {
	return s.tc.POST("/api/auth/signout", nil)
}

func (s *authSteps) requestReset(_ context.Context, email string) error {
	return s.tc.POST("/api/auth/reset-password", map[string]any{"email": email})
}

// sessionStateBecomes polls /api/session since settlement of ambient changes
// is asynchronous.
func (s *authSteps) sessionStateBecomes(_ context.Context, want string) error {
	deadline := time.Now().Add(3 * time.Second)
	var last any
	for time.Now().Before(deadline) {
		if err := s.tc.GET("/api/session", nil); err != nil {
			return err
		}
		state, err := s.tc.GetResponseField("session.state")
		if err == nil && fmt.Sprint(state) == want {
			return nil
		}
		last = state
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("session state never became %q, last %v", want, last)
}
