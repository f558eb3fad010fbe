//go:build integration

package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

type worldKey struct{}

func getWorld(ctx context.Context) *world {
	return ctx.Value(worldKey{}).(*world)
}

// InitializeCommonScenario registers the per-scenario server lifecycle and
// the steps shared by every feature.
func InitializeCommonScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return context.WithValue(ctx, worldKey{}, &world{}), nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w, ok := ctx.Value(worldKey{}).(*world); ok {
			w.stop()
		}
		return ctx, nil
	})

	ctx.Step(`^a running vidscribe server with a "([^"]*)" engine$`, aRunningServer)
	ctx.Step(`^the response status is (\d+)$`, theResponseStatusIs)
	ctx.Step(`^the response error mentions "([^"]*)"$`, theResponseErrorMentions)
}

func aRunningServer(ctx context.Context, engineName string) error {
	return getWorld(ctx).start(engineName)
}

func theResponseStatusIs(ctx context.Context, want int) error {
	w := getWorld(ctx)
	if w.status != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, w.status, w.body)
	}
	return nil
}

func theResponseErrorMentions(ctx context.Context, text string) error {
	body, err := getWorld(ctx).json()
	if err != nil {
		return err
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, text) {
		return fmt.Errorf("expected error to mention %q, got %q", text, msg)
	}
	return nil
}
