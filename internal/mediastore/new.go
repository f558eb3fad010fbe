package mediastore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type implStore struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	logger    logger.Logger
	now       func() time.Time

	mu    sync.RWMutex
	index map[string]Artifact
}

// Option configures the store.
type Option func(*implStore)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *implStore) {
		s.now = now
	}
}

// New opens (creating if needed) the store directory and indexes the
// artifacts already in it. Artifacts older than retention are evicted by
// Cleanup; interval is the janitor period used by Run.
func New(dir string, retention, interval time.Duration, log logger.Logger, opts ...Option) (Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	s := &implStore{
		dir:       abs,
		retention: retention,
		interval:  interval,
		logger:    log,
		now:       time.Now,
		index:     make(map[string]Artifact),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *implStore) reindex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan media dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.index[e.Name()] = Artifact{
			ID:          e.Name(),
			Path:        filepath.Join(s.dir, e.Name()),
			Size:        info.Size(),
			ContentType: ContentType,
			CreatedAt:   info.ModTime(),
		}
	}
	return nil
}
