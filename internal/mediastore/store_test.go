package mediastore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestStore(t *testing.T, clock *fakeClock) (*implStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, 2*time.Hour, time.Minute, logger.NewNop(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.(*implStore), dir
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "converted.wav")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"0123456789abcdef0123456789abcdef.wav", true},
		{"0123456789ABCDEF0123456789abcdef.wav", false},
		{"0123456789abcdef0123456789abcde.wav", false},
		{"0123456789abcdef0123456789abcdef.mp3", false},
		{"../etc/passwd", false},
		{"../0123456789abcdef0123456789abcdef.wav", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestImportAndOpen(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, dir := newTestStore(t, clock)
	src := writeSource(t, "RIFF-data")

	a, err := s.Import(context.Background(), src)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !ValidID(a.ID) {
		t.Errorf("Import() id %q is not a valid id", a.ID)
	}
	if a.Path != filepath.Join(dir, a.ID) {
		t.Errorf("Import() path = %q, want inside %q", a.Path, dir)
	}
	if a.ContentType != ContentType {
		t.Errorf("ContentType = %q, want %q", a.ContentType, ContentType)
	}
	if a.Size != int64(len("RIFF-data")) {
		t.Errorf("Size = %d, want %d", a.Size, len("RIFF-data"))
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source file should be moved, stat err = %v", err)
	}

	f, got, err := s.Open(a.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	body, _ := io.ReadAll(f)
	if string(body) != "RIFF-data" {
		t.Errorf("Open() body = %q", body)
	}
	if got.ID != a.ID {
		t.Errorf("Open() artifact id = %q, want %q", got.ID, a.ID)
	}
}

func TestImportGeneratesDistinctIDs(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, _ := newTestStore(t, clock)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		a, err := s.Import(context.Background(), writeSource(t, "x"))
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestGetErrors(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, _ := newTestStore(t, clock)

	if _, err := s.Get("../secret"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Get(traversal) error = %v, want ErrInvalidID", err)
	}
	if _, err := s.Get("0123456789abcdef0123456789abcdef.wav"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestOpenMissingFileDropsIndex(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, _ := newTestStore(t, clock)

	a, err := s.Import(context.Background(), writeSource(t, "x"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	os.Remove(a.Path)

	if _, _, err := s.Open(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after missing open error = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, _ := newTestStore(t, clock)

	a, _ := s.Import(context.Background(), writeSource(t, "x"))
	if err := s.Remove(a.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(a.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Remove")
	}
	if err := s.Remove(a.ID); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
	if err := s.Remove("nope"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Remove(invalid) error = %v, want ErrInvalidID", err)
	}
}

func TestCleanup(t *testing.T) {
	start := time.Now().Truncate(time.Second)
	clock := &fakeClock{t: start}
	s, dir := newTestStore(t, clock)

	old, _ := s.Import(context.Background(), writeSource(t, "old"))

	clock.t = start.Add(90 * time.Minute)
	fresh, _ := s.Import(context.Background(), writeSource(t, "fresh"))

	// Unrelated files in the directory are never touched.
	stray := filepath.Join(dir, "notes.txt")
	os.WriteFile(stray, []byte("keep"), 0o644)

	clock.t = start.Add(2*time.Hour + time.Second)
	n, err := s.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Cleanup() removed %d, want 1", n)
	}
	if _, err := s.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired artifact still indexed")
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh artifact evicted: %v", err)
	}
	if _, err := os.Stat(stray); err != nil {
		t.Errorf("stray file removed: %v", err)
	}
}

func TestNewIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	id := "00112233445566778899aabbccddeeff.wav"
	os.WriteFile(filepath.Join(dir, id), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "other.wav"), []byte("x"), 0o644)

	s, err := New(dir, time.Hour, time.Minute, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Get(id); err != nil {
		t.Errorf("existing artifact not indexed: %v", err)
	}
}

func TestWatchForgetsExternallyRemovedFiles(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, _ := newTestStore(t, clock)

	a, _ := s.Import(context.Background(), writeSource(t, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher time to register before removing.
	time.Sleep(100 * time.Millisecond)
	os.Remove(a.Path)

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := s.Get(a.ID); errors.Is(err, ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("index entry not dropped after external removal")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
}
