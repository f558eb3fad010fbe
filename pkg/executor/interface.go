package executor

import "context"

// LineFunc receives one line of a command's stderr as it is produced.
type LineFunc func(line string)

// Executor defines the interface for executing external commands
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
	ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error)
	// Stream runs the command, feeding stderr lines to onLine, and returns stdout.
	Stream(ctx context.Context, onLine LineFunc, name string, args ...string) (string, error)
}
