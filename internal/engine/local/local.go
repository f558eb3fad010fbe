// Package local runs speech recognition models as local subprocesses
// against an acquired artifact.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/engine"
)

// runner holds what both local engines share.
type runner struct {
	name    string
	command []string
	timeout time.Duration
	now     func() time.Time
}

func (r *runner) Name() string { return r.name }

func (r *runner) Capabilities() engine.Capabilities {
	return engine.Capabilities{NeedsLocalMedia: true}
}

func (r *runner) Submit(ctx context.Context, req engine.Request) (*engine.Handle, error) {
	if req.LocalPath == "" {
		return nil, fmt.Errorf("%s: no local media to transcribe", r.name)
	}
	if len(r.command) == 0 {
		return nil, fmt.Errorf("%s: no command configured", r.name)
	}
	return &engine.Handle{
		TaskID:      req.TaskID,
		Engine:      r.name,
		SubmittedAt: r.now(),
		Request:     req,
	}, nil
}

// Cancel has nothing to do: cancelling the Await context kills the process.
func (r *runner) Cancel(ctx context.Context, h *engine.Handle) error {
	return nil
}

// withTimeout bounds a run by the engine timeout.
func (r *runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// runError classifies a subprocess failure. Caller cancellation passes through.
func (r *runner) runError(parent, run context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(run.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", engine.ErrRemoteTimeout, r.name, r.timeout)
	}
	return fmt.Errorf("%w: %s: %v", engine.ErrLocalFailed, r.name, err)
}
