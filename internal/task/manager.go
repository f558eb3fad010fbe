package task

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type record struct {
	snap   Snapshot
	cancel context.CancelFunc
}

type implManager struct {
	mu            sync.Mutex
	notifyMu      sync.Mutex
	tasks         map[string]*record
	queue         chan string
	engines       EngineSet
	defaultEngine string
	observers     []Observer
	logger        logger.Logger
	now           func() time.Time
}

func (m *implManager) Create(ctx context.Context, params Params) (string, error) {
	params.VideoURL = strings.TrimSpace(params.VideoURL)
	if params.VideoURL == "" {
		return "", &ValidationError{Field: "video_url", Message: "is required"}
	}
	if strings.TrimSpace(params.Prompt) == "" {
		return "", &ValidationError{Field: "prompt", Message: "is required"}
	}
	if params.Engine == "" {
		params.Engine = m.defaultEngine
	}
	if m.engines == nil || !m.engines.Has(params.Engine) {
		return "", ErrUnsupportedEngine
	}

	now := m.now()
	id := uuid.NewString()
	rec := &record{snap: Snapshot{
		ID:        id,
		Status:    StatusPending,
		Stage:     "queued",
		Code:      CodeAccepted,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	m.mu.Lock()
	select {
	case m.queue <- id:
		m.tasks[id] = rec
	default:
		m.mu.Unlock()
		m.logger.Warn(ctx, "Task queue full, rejecting task for %s", params.VideoURL)
		return "", ErrQueueFull
	}
	snap := rec.snap
	m.unlockAndNotify(snap)

	m.logger.Info(ctx, "Task %s created (engine: %s)", id, params.Engine)
	return id, nil
}

func (m *implManager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tasks[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return rec.snapshot(), nil
}

func (m *implManager) Cancel(id string) (Snapshot, error) {
	m.mu.Lock()
	rec, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	if rec.snap.Status.Terminal() {
		snap := rec.snapshot()
		m.mu.Unlock()
		return snap, nil
	}

	m.finish(rec, StatusCanceled, CodeCanceled)
	rec.snap.Stage = "canceled"
	rec.snap.Detail = "canceled by user"
	cancel := rec.cancel
	rec.cancel = nil
	snap := rec.snapshot()
	m.unlockAndNotify(snap)

	if cancel != nil {
		cancel()
	}
	return snap, nil
}

func (m *implManager) UpdateProgress(id string, progress int, stage string) {
	m.mu.Lock()
	rec, ok := m.tasks[id]
	if !ok || rec.snap.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	progress = clamp(progress)
	changed := false
	if progress > rec.snap.Progress {
		rec.snap.Progress = progress
		changed = true
	}
	if stage != "" && stage != rec.snap.Stage {
		rec.snap.Stage = stage
		changed = true
	}
	if !changed {
		m.mu.Unlock()
		return
	}
	rec.snap.UpdatedAt = m.now()
	m.unlockAndNotify(rec.snapshot())
}

func (m *implManager) MarkRunning(parent context.Context, id string) (context.Context, bool) {
	m.mu.Lock()
	rec, ok := m.tasks[id]
	if !ok || rec.snap.Status != StatusPending {
		m.mu.Unlock()
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	rec.cancel = cancel
	rec.snap.Status = StatusRunning
	rec.snap.Stage = "starting"
	if rec.snap.Progress < 5 {
		rec.snap.Progress = 5
	}
	rec.snap.UpdatedAt = m.now()
	m.unlockAndNotify(rec.snapshot())
	return ctx, true
}

func (m *implManager) Succeed(id, content string, processTime time.Duration) {
	m.complete(id, func(rec *record) {
		m.finish(rec, StatusSuccess, CodeOK)
		rec.snap.Progress = 100
		rec.snap.Stage = "done"
		rec.snap.Content = content
		rec.snap.ProcessTime = processTime
	})
}

func (m *implManager) Fail(id string, code int, detail string) {
	if code == 0 {
		code = CodeInternal
	}
	m.complete(id, func(rec *record) {
		m.finish(rec, StatusFailed, code)
		rec.snap.Stage = "failed"
		rec.snap.Detail = detail
	})
}

func (m *implManager) complete(id string, apply func(*record)) {
	m.mu.Lock()
	rec, ok := m.tasks[id]
	if !ok || rec.snap.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	apply(rec)
	cancel := rec.cancel
	rec.cancel = nil
	m.unlockAndNotify(rec.snapshot())

	if cancel != nil {
		cancel()
	}
}

// finish sets the terminal fields. Callers hold m.mu.
func (m *implManager) finish(rec *record, status Status, code int) {
	now := m.now()
	rec.snap.Status = status
	rec.snap.Code = code
	rec.snap.UpdatedAt = now
	rec.snap.CompletedAt = now
}

func (m *implManager) Sweep(retention time.Duration) int {
	cutoff := m.now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, rec := range m.tasks {
		if rec.snap.Status.Terminal() && rec.snap.CompletedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

func (m *implManager) Queue() <-chan string {
	return m.queue
}

// unlockAndNotify releases m.mu and delivers snap to the observers.
// notifyMu is taken before m.mu is released, so observers see changes in
// the order they were applied.
func (m *implManager) unlockAndNotify(snap Snapshot) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Unlock()

	for _, o := range m.observers {
		o(snap)
	}
}

func (r *record) snapshot() Snapshot {
	snap := r.snap
	if r.snap.Params.Options != nil {
		opts := make(map[string]any, len(r.snap.Params.Options))
		for k, v := range r.snap.Params.Options {
			opts[k] = v
		}
		snap.Params.Options = opts
	}
	return snap
}

func clamp(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
