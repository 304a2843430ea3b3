//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"saldo/e2e/steps/common"
	"saldo/e2e/steps/query"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	query.RegisterSteps(ctx, tc)
}
