//go:build e2e

package query

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	MockLookups() (float64, error)
	Save(name string, value float64)
	Recall(name string) (float64, bool)
}

// RegisterSteps registers balance query step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &querySteps{tc: tc}

	// Query steps
	ctx.Step(`^operator "([^"]*)" queries document "([^"]*)" benefit "([^"]*)"$`, steps.submitQuery)
	ctx.Step(`^operator "([^"]*)" reads the latest query for document "([^"]*)" benefit "([^"]*)"$`, steps.latestQuery)
	ctx.Step(`^I request the credit summary of "([^"]*)"$`, steps.creditSummary)

	// Ledger steps
	ctx.Step(`^I note the available limit of "([^"]*)"$`, steps.noteAvailableLimit)
	ctx.Step(`^the available limit of "([^"]*)" should have dropped by (\d+)$`, steps.availableLimitDroppedBy)

	// External call accounting
	ctx.Step(`^I note the balance API call count$`, steps.noteLookups)
	ctx.Step(`^the balance API should have been called (\d+) more times?$`, steps.lookupsIncreasedBy)
}

type querySteps struct {
	tc TestContext
}

func (s *querySteps) submitQuery(ctx context.Context, login, document, benefit string) error {
	return s.tc.POST("/api/queries", map[string]interface{}{
		"document": document,
		"benefit":  benefit,
		"login":    login,
	})
}

func (s *querySteps) latestQuery(ctx context.Context, login, document, benefit string) error {
	q := url.Values{}
	q.Set("document", document)
	q.Set("benefit", benefit)
	q.Set("login", login)
	return s.tc.GET("/api/queries/latest?"+q.Encode(), nil)
}

func (s *querySteps) creditSummary(ctx context.Context, login string) error {
	return s.tc.GET("/api/credits/"+url.PathEscape(login), nil)
}

func (s *querySteps) availableLimit(login string) (float64, error) {
	if err := s.creditSummary(context.Background(), login); err != nil {
		return 0, err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return 0, fmt.Errorf("credit summary for %s returned %d: %s", login, status, string(s.tc.GetLastResponseBody()))
	}
	v, err := s.tc.GetResponseField("available_limit")
	if err != nil {
		return 0, err
	}
	limit, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("available_limit is not a number: %v", v)
	}
	return limit, nil
}

func (s *querySteps) noteAvailableLimit(ctx context.Context, login string) error {
	limit, err := s.availableLimit(login)
	if err != nil {
		return err
	}
	s.tc.Save("limit:"+login, limit)
	return nil
}

func (s *querySteps) availableLimitDroppedBy(ctx context.Context, login string, delta int) error {
	before, ok := s.tc.Recall("limit:" + login)
	if !ok {
		return fmt.Errorf("available limit of %s was not noted", login)
	}
	after, err := s.availableLimit(login)
	if err != nil {
		return err
	}
	if before-after != float64(delta) {
		return fmt.Errorf("available limit of %s: expected drop of %d, went from %v to %v", login, delta, before, after)
	}
	return nil
}

func (s *querySteps) noteLookups(ctx context.Context) error {
	n, err := s.tc.MockLookups()
	if err != nil {
		return err
	}
	s.tc.Save("lookups", n)
	return nil
}

func (s *querySteps) lookupsIncreasedBy(ctx context.Context, delta int) error {
	before, ok := s.tc.Recall("lookups")
	if !ok {
		return fmt.Errorf("balance API call count was not noted")
	}
	after, err := s.tc.MockLookups()
	if err != nil {
		return err
	}
	if after-before != float64(delta) {
		return fmt.Errorf("expected %d balance API calls, got %v", delta, after-before)
	}
	return nil
}
