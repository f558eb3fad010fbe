package mediastore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch drops index entries for artifacts that disappear from the directory
// without going through the store, e.g. an operator clearing /tmp.
func (s *implStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("add watch path: %w", err)
	}

	s.logger.Info(ctx, "Media directory watcher started: %s", s.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			id := filepath.Base(event.Name)
			if !ValidID(id) {
				continue
			}
			s.mu.Lock()
			_, known := s.index[id]
			delete(s.index, id)
			s.mu.Unlock()
			if known {
				s.logger.Debug(ctx, "Artifact removed outside the store: %s", id)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error(ctx, "Media watcher error: %v", err)
		}
	}
}
