package processor

import (
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/publisher"
	"github.com/nguyentantai21042004/vidscribe/internal/summarizer"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

const defaultCancelTimeout = 10 * time.Second

// Engines looks engines up by name.
type Engines interface {
	Get(name string) (engine.Engine, bool)
}

type implProcessor struct {
	tasks         task.Manager
	engines       Engines
	acquisition   acquisition.Pipeline
	publisher     publisher.Publisher
	store         mediastore.Store
	summarizer    summarizer.Summarizer
	cancelTimeout time.Duration
	logger        logger.Logger
	now           func() time.Time
}

type Option func(*implProcessor)

// WithSummarizer enables the summary post-step for transcription engines.
func WithSummarizer(s summarizer.Summarizer) Option {
	return func(p *implProcessor) { p.summarizer = s }
}

// WithCancelTimeout bounds the best-effort remote cancel call.
func WithCancelTimeout(d time.Duration) Option {
	return func(p *implProcessor) { p.cancelTimeout = d }
}

// New creates a new Processor instance
func New(
	tasks task.Manager,
	engines Engines,
	acq acquisition.Pipeline,
	pub publisher.Publisher,
	store mediastore.Store,
	log logger.Logger,
	opts ...Option,
) Processor {
	p := &implProcessor{
		tasks:         tasks,
		engines:       engines,
		acquisition:   acq,
		publisher:     pub,
		store:         store,
		cancelTimeout: defaultCancelTimeout,
		logger:        log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
