// Package task owns the lifecycle of generation tasks: creation, the
// PENDING -> RUNNING -> terminal state machine, progress, cancellation and
// the worker pool that drains the queue.
package task

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusCanceled Status = "CANCELED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCanceled
}

// Status codes reported alongside the state.
const (
	CodeAccepted = 202
	CodeOK       = 200
	CodeCanceled = 499
	CodeInternal = 500
)

// Params are the caller's inputs, immutable after Create.
type Params struct {
	VideoURL  string
	Prompt    string
	Title     string
	Type      string
	Engine    string
	TimeRange string
	Options   map[string]any
}

// Option returns a string option or "".
func (p Params) Option(key string) string {
	v, ok := p.Options[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Snapshot is a value copy of a task.
type Snapshot struct {
	ID          string
	Status      Status
	Progress    int
	Stage       string
	Code        int
	Detail      string
	Content     string
	ProcessTime time.Duration
	Params      Params
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// Manager is the single owner of task state. Every method is safe for
// concurrent use and none blocks on I/O.
type Manager interface {
	Create(ctx context.Context, params Params) (string, error)
	Get(id string) (Snapshot, error)
	// Cancel marks a non-terminal task CANCELED and stops its worker.
	// Terminal tasks are returned unchanged.
	Cancel(id string) (Snapshot, error)
	UpdateProgress(id string, progress int, stage string)

	// MarkRunning moves a PENDING task to RUNNING and returns the context
	// its work must observe. ok is false when the task is gone or no longer
	// PENDING.
	MarkRunning(parent context.Context, id string) (ctx context.Context, ok bool)
	Succeed(id, content string, processTime time.Duration)
	Fail(id string, code int, detail string)

	// Sweep drops terminal tasks completed more than retention ago.
	Sweep(retention time.Duration) int
	// Queue yields the ids of created tasks in order.
	Queue() <-chan string
}

// EngineSet reports which engine names can serve a task.
type EngineSet interface {
	Has(name string) bool
}

// Observer is told about every state change, after the change is applied.
// Calls are serialized in the order the changes happened. An Observer must
// not call back into the Manager.
type Observer func(Snapshot)

// Handler runs one task. It is called by a pool worker with the task id.
type Handler func(ctx context.Context, id string)
