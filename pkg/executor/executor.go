package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	stderrTailLines = 20
	waitDelay       = 5 * time.Second
)

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return e.ExecuteInDir(ctx, "", name, args...)
}

// ExecuteInDir runs an external command in a specific working directory
func (e *implExecutor) ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", commandError(name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// Stream runs an external command, handing every stderr line to onLine.
// The process is killed when ctx is done.
func (e *implExecutor) Stream(ctx context.Context, onLine LineFunc, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	lines := &lineWriter{onLine: onLine}
	cmd.Stdout = &stdout
	cmd.Stderr = lines

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lines.flush()
		return "", commandError(name, err, strings.Join(lines.tail, "\n"))
	}
	lines.flush()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	return stdout.String(), nil
}

// lineWriter splits written bytes into lines and keeps the last few.
type lineWriter struct {
	onLine LineFunc
	buf    []byte
	tail   []string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > stderrTailLines {
		w.tail = w.tail[1:]
	}
	if w.onLine != nil {
		w.onLine(line)
	}
}

// commandError includes stderr in the error message for debugging
func commandError(name string, err error, stderr string) error {
	if stderr != "" {
		return fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderr)
	}
	return fmt.Errorf("command '%s' failed: %w", name, err)
}
