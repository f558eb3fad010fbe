package processor

import "context"

// Processor runs one queued task to a terminal state.
type Processor interface {
	// Process is a task.Handler: it claims the task, runs the pipeline the
	// task's engine needs and records the outcome on the task manager.
	Process(ctx context.Context, taskID string)
}
