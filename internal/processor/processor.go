package processor

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

// EmptyResult replaces blank engine output.
const EmptyResult = "(empty result)"

// Progress checkpoints outside the acquisition and await windows.
const (
	progressPublishStart = 60
	progressPublished    = 65
	progressSummarize    = 95
)

// Process orchestrates the entire pipeline of one task
func (p *implProcessor) Process(ctx context.Context, taskID string) {
	taskCtx, ok := p.tasks.MarkRunning(ctx, taskID)
	if !ok {
		p.logger.Debug(ctx, "Task %s is no longer pending, skipping", taskID)
		return
	}
	taskCtx = logger.WithTaskID(taskCtx, taskID)

	snap, err := p.tasks.Get(taskID)
	if err != nil {
		p.logger.Warn(taskCtx, "Task vanished before processing: %v", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(taskCtx, "Task panicked: %v\n%s", r, debug.Stack())
			p.tasks.Fail(taskID, task.CodeInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	startTime := p.now()
	p.logger.Info(taskCtx, "Starting task (engine: %s): %s", snap.Params.Engine, snap.Params.VideoURL)

	content, err := p.run(taskCtx, snap)
	if err != nil {
		p.finishWithError(ctx, taskCtx, taskID, err)
		return
	}

	duration := p.now().Sub(startTime)
	p.tasks.Succeed(taskID, content, duration)
	p.logger.Info(taskCtx, "Task completed in %s (%d chars)", duration, len(content))
}

// run executes the steps the engine's capabilities call for and returns
// the final text.
func (p *implProcessor) run(ctx context.Context, snap task.Snapshot) (string, error) {
	eng, ok := p.engines.Get(snap.Params.Engine)
	if !ok {
		return "", fmt.Errorf("%w: %s", task.ErrUnsupportedEngine, snap.Params.Engine)
	}
	caps := eng.Capabilities()

	req := engine.Request{
		TaskID:         snap.ID,
		SourceURL:      snap.Params.VideoURL,
		Prompt:         snap.Params.Prompt,
		Title:          snap.Params.Title,
		Mode:           snap.Params.Type,
		SourceLanguage: snap.Params.Option("sourceLanguage"),
		TargetLanguage: snap.Params.Option("targetLanguage"),
	}

	if caps.NeedsLocalMedia {
		release, err := p.prepareLocal(ctx, snap, caps, &req)
		defer release()
		if err != nil {
			return "", err
		}
	} else if err := p.prepareRemote(ctx, snap, caps, &req); err != nil {
		return "", err
	}

	content, err := p.transcribe(ctx, eng, req)
	if err != nil {
		return "", err
	}

	// Engines that need local media only transcribe.
	if caps.NeedsLocalMedia {
		content = p.summarize(ctx, snap, content)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.TrimSpace(content) == "" {
		return EmptyResult, nil
	}
	return content, nil
}

// finishWithError records err on the task. A task canceled by the user is
// already terminal and stays so.
func (p *implProcessor) finishWithError(ctx, taskCtx context.Context, taskID string, err error) {
	if taskCtx.Err() != nil {
		if snap, getErr := p.tasks.Get(taskID); getErr == nil && snap.Status == task.StatusCanceled {
			p.logger.Info(taskCtx, "Task canceled")
			return
		}
		if ctx.Err() != nil {
			p.logger.Warn(taskCtx, "Task interrupted by shutdown")
			p.tasks.Fail(taskID, CodeUnavailable, "interrupted by server shutdown")
			return
		}
	}

	code, detail := Classify(err)
	p.logger.Error(taskCtx, "Task failed (%d): %v", code, err)
	p.tasks.Fail(taskID, code, detail)
}
