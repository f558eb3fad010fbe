package processor

import (
	"context"
	"fmt"

	"github.com/nguyentantai21042004/vidscribe/internal/engine"
)

// transcribe submits the request and waits for the engine's answer. When the
// task is canceled mid-flight the remote job is canceled too.
func (p *implProcessor) transcribe(ctx context.Context, eng engine.Engine, req engine.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	handle, err := eng.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("submit to %s: %w", eng.Name(), err)
	}
	if handle.ExternalRef != "" {
		p.logger.Info(ctx, "Submitted to %s as %s", eng.Name(), handle.ExternalRef)
	}

	result, err := eng.Await(ctx, handle, p.reporter(req.TaskID))
	if ctx.Err() != nil {
		p.cancelRemote(ctx, eng, handle)
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", eng.Name(), err)
	}

	p.logger.Info(ctx, "%s finished in %s", eng.Name(), result.ProcessTime)
	return result.Content, nil
}

// cancelRemote tells the engine to drop the job. The task context is
// already done, so a fresh bounded one is used.
func (p *implProcessor) cancelRemote(ctx context.Context, eng engine.Engine, h *engine.Handle) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cancelTimeout)
	defer cancel()

	if err := eng.Cancel(cancelCtx, h); err != nil {
		p.logger.Warn(ctx, "Failed to cancel %s job %s: %v", eng.Name(), h.ExternalRef, err)
	}
}
