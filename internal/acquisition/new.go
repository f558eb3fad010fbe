package acquisition

import (
	"net/http"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

type implPipeline struct {
	store     mediastore.Store
	converter *Converter
	executor  executor.Executor
	client    *http.Client
	logger    logger.Logger

	tempDir   string
	ytdlpPath string
	ffmpeg    string
	maxBytes  int64
	attempts  int
	backoff   time.Duration
}

// Option configures the pipeline.
type Option func(*implPipeline)

// WithHTTPClient sets the client used for direct downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(p *implPipeline) {
		p.client = c
	}
}

// WithRetryBackoff sets the base delay between yt-dlp attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *implPipeline) {
		p.backoff = d
	}
}

// New creates a new Pipeline instance
func New(cfg *config.Config, store mediastore.Store, exec executor.Executor, log logger.Logger, opts ...Option) Pipeline {
	p := &implPipeline{
		store:     store,
		executor:  exec,
		client:    &http.Client{Timeout: cfg.Downloader.Timeout},
		logger:    log,
		tempDir:   cfg.Paths.Temp,
		ytdlpPath: cfg.Downloader.YtDlpPath,
		ffmpeg:    cfg.FFmpeg.BinaryPath,
		maxBytes:  cfg.Downloader.MaxBytes,
		attempts:  cfg.Downloader.Attempts,
		backoff:   1500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	p.converter = NewConverter(
		WithFFmpegPath(p.ffmpeg),
		WithExecutor(exec),
	)
	return p
}
