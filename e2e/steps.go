package e2e

import (
	"github.com/cucumber/godog"

	"portal/e2e/steps/auth"
	"portal/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// generic requests and assertions
	common.RegisterSteps(ctx, tc)

	// sign-up, sign-in, sign-out and session polling
	auth.RegisterSteps(ctx, tc)
}
