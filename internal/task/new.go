package task

import (
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

const defaultQueueSize = 64

type Option func(*implManager)

// WithObserver registers a hook called after each state change.
func WithObserver(o Observer) Option {
	return func(m *implManager) { m.observers = append(m.observers, o) }
}

// WithDefaultEngine sets the engine used when Params.Engine is empty.
func WithDefaultEngine(name string) Option {
	return func(m *implManager) { m.defaultEngine = name }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *implManager) { m.now = now }
}

// New creates a Manager with a queue of queueSize slots.
func New(engines EngineSet, queueSize int, log logger.Logger, opts ...Option) Manager {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	m := &implManager{
		engines: engines,
		tasks:   make(map[string]*record),
		queue:   make(chan string, queueSize),
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
