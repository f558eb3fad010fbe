// Package engine defines the uniform contract every transcription or
// summarization backend implements, and the registry that maps engine names
// to configured instances.
package engine

import (
	"context"
	"time"
)

// Capabilities tell the worker what to prepare before Submit.
type Capabilities struct {
	// NeedsLocalMedia engines receive Request.LocalPath from the acquisition pipeline.
	NeedsLocalMedia bool
	// NeedsPublicURL engines receive Request.MediaURL pointing at a published artifact.
	NeedsPublicURL bool
	// NativeYouTube engines fetch YouTube page URLs themselves, so direct
	// link resolution is skipped.
	NativeYouTube bool
}

// Request is everything an engine may need for one task.
type Request struct {
	TaskID    string
	SourceURL string
	// MediaURL is the URL the remote service should fetch: a resolved direct
	// link for direct-link engines, a published artifact for publish engines.
	MediaURL  string
	LocalPath string

	Prompt string
	Title  string
	// Mode is the task type, summary or clip.
	Mode           string
	SourceLanguage string
	TargetLanguage string
}

// Handle identifies a submitted job.
type Handle struct {
	TaskID string
	Engine string
	// ExternalRef is the remote job id. Empty for local engines.
	ExternalRef string
	SubmittedAt time.Time
	Request     Request
}

type Result struct {
	Content     string
	ProcessTime time.Duration
}

// ProgressFunc receives progress on the task scale together with a stage label.
type ProgressFunc func(progress int, stage string)

// Engine is one transcription or summarization backend.
type Engine interface {
	Name() string
	Capabilities() Capabilities
	Submit(ctx context.Context, req Request) (*Handle, error)
	// Await blocks until the job finishes, ctx is done or the engine's
	// timeout elapses.
	Await(ctx context.Context, h *Handle, progress ProgressFunc) (*Result, error)
	// Cancel is best effort. Engines without a remote cancel return nil.
	Cancel(ctx context.Context, h *Handle) error
}
