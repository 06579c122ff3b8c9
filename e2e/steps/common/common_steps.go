package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastStatus() int
	GetLastLocation() string
	GetLastBody() []byte
	GetResponseField(field string) (any, error)
	Reset()
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a fresh browser$`, steps.freshBrowser)
	ctx.Step(`^the portal is running$`, steps.portalIsRunning)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.bodyShouldContain)
	ctx.Step(`^I should be redirected to "([^"]*)"$`, steps.redirectedTo)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) freshBrowser(context.Context) error {
	s.tc.Reset()
	return nil
}

func (s *commonSteps) portalIsRunning(context.Context) error {
	if err := s.tc.GET("/healthz", nil); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 200 {
		return fmt.Errorf("portal unhealthy: status %d: %s", s.tc.GetLastStatus(), s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want string) error {
	code, err := strconv.Atoi(want)
	if err != nil {
		return err
	}
	if got := s.tc.GetLastStatus(); got != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s to be %q, got %v", field, want, got)
	}
	return nil
}

func (s *commonSteps) bodyShouldContain(_ context.Context, fragment string) error {
	if !strings.Contains(string(s.tc.GetLastBody()), fragment) {
		return fmt.Errorf("response does not contain %q: %s", fragment, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) redirectedTo(_ context.Context, path string) error {
	if got := s.tc.GetLastLocation(); got != path {
		return fmt.Errorf("expected redirect to %q, got %q", path, got)
	}
	return nil
}
