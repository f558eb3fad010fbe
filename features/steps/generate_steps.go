//go:build integration

package steps

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

const pollTimeout = 5 * time.Second

// InitializeGenerateScenario registers the task API steps.
func InitializeGenerateScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^the "([^"]*)" engine takes a long time$`, theEngineTakesALongTime)
	ctx.Step(`^I submit "([^"]*)" to engine "([^"]*)" with prompt "([^"]*)"$`, iSubmit)
	ctx.Step(`^I receive a task id$`, iReceiveATaskID)
	ctx.Step(`^I poll the task until it finishes$`, iPollUntilFinished)
	ctx.Step(`^I wait for the task to be running$`, iWaitForRunning)
	ctx.Step(`^I cancel the task$`, iCancelTheTask)
	ctx.Step(`^the task status is "([^"]*)"$`, theTaskStatusIs)
	ctx.Step(`^the task progress is (\d+)$`, theTaskProgressIs)
	ctx.Step(`^the task code is (\d+)$`, theTaskCodeIs)
	ctx.Step(`^the task content is not empty$`, theTaskContentIsNotEmpty)
}

func theEngineTakesALongTime(ctx context.Context, name string) error {
	w := getWorld(ctx)
	if w.engine.name != name {
		return fmt.Errorf("no engine named %q", name)
	}
	w.engine.mu.Lock()
	w.engine.slow = true
	w.engine.mu.Unlock()
	return nil
}

func iSubmit(ctx context.Context, videoURL, engineName, prompt string) error {
	w := getWorld(ctx)
	body := map[string]any{
		"video_url": videoURL,
		"params": map[string]any{
			"title":  "Feature run",
			"type":   "summary",
			"engine": engineName,
			"prompt": prompt,
		},
	}
	if err := w.request(http.MethodPost, "/api/generate", body); err != nil {
		return err
	}
	if w.status == http.StatusAccepted {
		resp, err := w.json()
		if err != nil {
			return err
		}
		w.taskID, _ = resp["taskId"].(string)
	}
	return nil
}

func iReceiveATaskID(ctx context.Context) error {
	if getWorld(ctx).taskID == "" {
		return fmt.Errorf("no task id in response")
	}
	return nil
}

// pollUntil fetches the task until cond holds or the timeout passes.
func pollUntil(ctx context.Context, cond func(status string) bool) error {
	w := getWorld(ctx)
	deadline := time.Now().Add(pollTimeout)
	for {
		if err := w.request(http.MethodGet, "/api/generate/"+w.taskID, nil); err != nil {
			return err
		}
		resp, err := w.json()
		if err != nil {
			return err
		}
		status, _ := resp["status"].(string)
		if cond(status) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("task still %s after %s", status, pollTimeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func iPollUntilFinished(ctx context.Context) error {
	return pollUntil(ctx, func(s string) bool {
		return s == "SUCCESS" || s == "FAILED" || s == "CANCELED"
	})
}

func iWaitForRunning(ctx context.Context) error {
	return pollUntil(ctx, func(s string) bool { return s == "RUNNING" })
}

func iCancelTheTask(ctx context.Context) error {
	w := getWorld(ctx)
	return w.request(http.MethodPost, "/api/generate/"+w.taskID+"/cancel", nil)
}

func taskField(ctx context.Context, key string) (any, error) {
	w := getWorld(ctx)
	if err := w.request(http.MethodGet, "/api/generate/"+w.taskID, nil); err != nil {
		return nil, err
	}
	resp, err := w.json()
	if err != nil {
		return nil, err
	}
	return resp[key], nil
}

func theTaskStatusIs(ctx context.Context, want string) error {
	got, err := taskField(ctx, "status")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected status %s, got %v", want, got)
	}
	return nil
}

func theTaskProgressIs(ctx context.Context, want int) error {
	got, err := taskField(ctx, "progress")
	if err != nil {
		return err
	}
	if got != float64(want) {
		return fmt.Errorf("expected progress %d, got %v", want, got)
	}
	return nil
}

func theTaskCodeIs(ctx context.Context, want int) error {
	got, err := taskField(ctx, "code")
	if err != nil {
		return err
	}
	if got != float64(want) {
		return fmt.Errorf("expected code %d, got %v", want, got)
	}
	return nil
}

func theTaskContentIsNotEmpty(ctx context.Context) error {
	got, err := taskField(ctx, "content")
	if err != nil {
		return err
	}
	if s, _ := got.(string); s == "" {
		return fmt.Errorf("expected content, got none")
	}
	return nil
}
