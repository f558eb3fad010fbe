package mediastore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}\.wav$`)

// ValidID reports whether id has the shape of a store-generated file id.
// Anything else (path separators, dots, other extensions) is rejected.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + ".wav", nil
}

func (s *implStore) Import(ctx context.Context, srcPath string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	id, err := newID()
	if err != nil {
		return Artifact{}, fmt.Errorf("generate file id: %w", err)
	}
	dst := filepath.Join(s.dir, id)

	if err := os.Rename(srcPath, dst); err != nil {
		// Scratch space may live on another filesystem.
		if err := copyFile(srcPath, dst); err != nil {
			return Artifact{}, fmt.Errorf("import artifact: %w", err)
		}
		_ = os.Remove(srcPath)
	}

	now := s.now()
	if err := os.Chtimes(dst, now, now); err != nil {
		s.logger.Warn(ctx, "Failed to stamp artifact %s: %v", id, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}

	a := Artifact{
		ID:          id,
		Path:        dst,
		Size:        info.Size(),
		ContentType: ContentType,
		CreatedAt:   now,
	}

	s.mu.Lock()
	s.index[id] = a
	s.mu.Unlock()

	s.logger.Debug(ctx, "Artifact stored: %s (%d bytes)", id, a.Size)
	return a, nil
}

func (s *implStore) Get(id string) (Artifact, error) {
	if !ValidID(id) {
		return Artifact{}, ErrInvalidID
	}
	s.mu.RLock()
	a, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

func (s *implStore) Open(id string) (*os.File, Artifact, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, Artifact{}, err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.forget(id)
			return nil, Artifact{}, ErrNotFound
		}
		return nil, Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	return f, a, nil
}

func (s *implStore) Remove(id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	s.forget(id)
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

func (s *implStore) Cleanup(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("scan media dir: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	cleaned := 0

	for _, e := range entries {
		if e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		created, ok := s.createdAt(e)
		if !ok || !created.Before(cutoff) {
			continue
		}
		if err := s.Remove(e.Name()); err != nil {
			s.logger.Warn(ctx, "Failed to remove expired artifact %s: %v", e.Name(), err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		s.logger.Info(ctx, "Cleaned up %d expired artifacts", cleaned)
	}
	return cleaned, nil
}

func (s *implStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil {
				s.logger.Error(ctx, "Media cleanup error: %v", err)
			}
		}
	}
}

func (s *implStore) createdAt(e os.DirEntry) (time.Time, bool) {
	s.mu.RLock()
	a, ok := s.index[e.Name()]
	s.mu.RUnlock()
	if ok {
		return a.CreatedAt, true
	}
	info, err := e.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (s *implStore) forget(id string) {
	s.mu.Lock()
	delete(s.index, id)
	s.mu.Unlock()
}

// copyFile streams src into dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
