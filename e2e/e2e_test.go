//go:build e2e

// Package e2e drives a running saldo server and the balance API mock.
//
//	SEED_FILE=e2e/testdata/seed.json BALANCE_API_URL=http://localhost:8082/v3/query-inss-balances/finder/await \
//	BALANCE_API_TOKEN=balance-api-secret-key BALANCE_API_PACING=10ms go run ./cmd/server
//	go test -tags e2e ./e2e
package e2e

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
}

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

func TestFeatures(t *testing.T) {
	flag.Parse()
	opts.TestingT = t

	tc := NewTestContext()
	if err := waitReady(tc.HTTPClient, tc.BaseURL+"/health/ready", 30*time.Second); err != nil {
		t.Skipf("saldo is not reachable: %v", err)
	}
	if err := waitReady(tc.HTTPClient, tc.MockURL+"/health", 10*time.Second); err != nil {
		t.Skipf("balance API mock is not reachable: %v", err)
	}

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options:             &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func waitReady(client *http.Client, url string, within time.Duration) error {
	deadline := time.Now().Add(within)
	for {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := NewTestContext()

	// Steps hold tc, so each scenario resets it in place.
	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		*tc = *NewTestContext()
		return ctx, nil
	})

	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			fmt.Printf("Scenario failed: %s\nLast Response: %s\n", s.Name, string(tc.LastResponseBody))
		}
		return ctx, nil
	})

	RegisterSteps(sc, tc)
}
