package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

func TestPoolRunsEveryTaskOnce(t *testing.T) {
	m := newTestManager(t)

	var mu sync.Mutex
	runs := make(map[string]int)
	handler := func(ctx context.Context, id string) {
		if _, ok := m.MarkRunning(ctx, id); !ok {
			return
		}
		mu.Lock()
		runs[id]++
		mu.Unlock()
		m.Succeed(id, "ok", 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(m, 3, handler, logger.NewNop())
	pool.Start(ctx)

	var ids []string
	for i := 0; i < 6; i++ {
		id, err := m.Create(context.Background(), validParams())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, id)
	}

	deadline := time.Now().Add(2 * time.Second)
	for _, id := range ids {
		for {
			snap, _ := m.Get(id)
			if snap.Status == StatusSuccess {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("task %s stuck at %s", id, snap.Status)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		if runs[id] != 1 {
			t.Errorf("task %s ran %d times", id, runs[id])
		}
	}
}

func TestRunSweeperStops(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, m, time.Hour, time.Millisecond, logger.NewNop())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
