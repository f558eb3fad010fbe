package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type fakeRedis struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, message.([]byte))

	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func (f *fakeRedis) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRedisPublisher(t *testing.T) {
	client := &fakeRedis{}
	p := newRedisPublisher(client, "vidscribe:task:", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(ctx, Event{TaskID: "abc", Status: "RUNNING", Progress: 40, Stage: "converting audio", Code: 202})
	waitFor(t, func() bool { return client.count() == 1 })

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.channels[0] != "vidscribe:task:abc" {
		t.Errorf("channel = %q", client.channels[0])
	}
	var got Event
	if err := json.Unmarshal(client.payloads[0], &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got.Status != "RUNNING" || got.Progress != 40 || got.TaskID != "abc" {
		t.Errorf("event = %+v", got)
	}
}

func TestRedisPublisherSurvivesErrors(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	p := newRedisPublisher(client, "p:", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(ctx, Event{TaskID: "1"})
	p.Publish(ctx, Event{TaskID: "2"})
	waitFor(t, func() bool { return client.count() == 2 })
}

func TestPublishNeverBlocks(t *testing.T) {
	p := newRedisPublisher(&fakeRedis{}, "p:", logger.NewNop())

	done := make(chan struct{})
	go func() {
		// Nothing drains the queue: the overflow must be dropped.
		for i := 0; i < queueSize+10; i++ {
			p.Publish(context.Background(), Event{TaskID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestNop(t *testing.T) {
	p := NewNop()
	p.Publish(context.Background(), Event{TaskID: "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
