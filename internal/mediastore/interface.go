package mediastore

import (
	"context"
	"errors"
	"os"
	"time"
)

// ContentType of every artifact: mono 16 kHz PCM wave audio.
const ContentType = "audio/wav"

var (
	ErrNotFound  = errors.New("media artifact not found")
	ErrInvalidID = errors.New("invalid media file id")
)

// Artifact is a converted audio file owned by the store.
type Artifact struct {
	ID          string
	Path        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

// Store manages the directory of converted audio artifacts.
type Store interface {
	// Import moves srcPath into the store under a fresh random id.
	Import(ctx context.Context, srcPath string) (Artifact, error)
	Get(id string) (Artifact, error)
	// Open returns the artifact's file for reading. The caller closes it.
	Open(id string) (*os.File, Artifact, error)
	Remove(id string) error
	// Cleanup deletes artifacts older than the retention window.
	Cleanup(ctx context.Context) (int, error)
	// Run calls Cleanup on every interval tick until ctx is done.
	Run(ctx context.Context)
	// Watch keeps the index in sync with files deleted outside the store.
	Watch(ctx context.Context) error
}
