package acquisition

import (
	"context"
	"errors"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

var (
	ErrDownload   = errors.New("media download failed")
	ErrConversion = errors.New("audio conversion failed")
)

// ProgressFunc receives pipeline progress already mapped to the task scale.
type ProgressFunc func(progress int, stage string)

// Request describes one acquisition run.
type Request struct {
	TaskID    string
	SourceURL string
	// TimeRange is an optional HH:MM:SS-HH:MM:SS clip window.
	TimeRange string
	Progress  ProgressFunc
}

// Pipeline turns a remote media reference into a normalized local artifact.
type Pipeline interface {
	// Acquire downloads, converts to 16 kHz mono wav and registers the result
	// in the media store.
	Acquire(ctx context.Context, req Request) (mediastore.Artifact, error)
	// ResolveDirectURL returns a directly fetchable media URL for sourceURL.
	// Non-YouTube URLs are returned unchanged.
	ResolveDirectURL(ctx context.Context, sourceURL string) (string, error)
}
