// Package gemini sends the source media URL together with the caller's
// instruction to Gemini and returns the generated text.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/llm"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

const progressStep = 2 * time.Second

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

type Engine struct {
	name    string
	client  llm.Client
	timeout time.Duration
	tick    time.Duration
	logger  logger.Logger
	now     func() time.Time
}

// New creates a gemini engine registered as name.
func New(name string, cfg config.EngineConfig, log logger.Logger) *Engine {
	return newEngine(name, llm.New(cfg.APIKeys, cfg.Model, log), cfg.Timeout, log)
}

func newEngine(name string, client llm.Client, timeout time.Duration, log logger.Logger) *Engine {
	return &Engine{
		name:    name,
		client:  client,
		timeout: timeout,
		tick:    time.Second,
		logger:  log,
		now:     time.Now,
	}
}

func (e *Engine) Name() string { return e.name }

// Capabilities: Gemini reads public URLs, YouTube pages included.
func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{NativeYouTube: true}
}

// Submit only validates: generation is a single synchronous call made in Await.
func (e *Engine) Submit(ctx context.Context, req engine.Request) (*engine.Handle, error) {
	if req.MediaURL == "" {
		return nil, fmt.Errorf("%s: no media url", e.name)
	}
	return &engine.Handle{
		TaskID:      req.TaskID,
		Engine:      e.name,
		SubmittedAt: e.now(),
		Request:     req,
	}, nil
}

func (e *Engine) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	req := h.Request
	start := e.now()
	report := func() {
		progress(engine.ElapsedProgress(engine.ProgressAwaitStart, e.now().Sub(start), progressStep), "gemini generating")
	}
	report()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				report()
			}
		}
	}()

	text, err := e.client.Generate(runCtx,
		genai.NewPartFromText(Prompt(req)),
		genai.NewPartFromURI(req.MediaURL, MIMEType(req.MediaURL)),
	)
	close(done)
	wg.Wait()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: gemini after %s", engine.ErrRemoteTimeout, e.timeout)
		}
		if strings.Contains(strings.ToLower(err.Error()), "fetch") {
			return nil, fmt.Errorf("%w: gemini could not read %s: %v", engine.ErrRemoteFetch, req.MediaURL, err)
		}
		return nil, fmt.Errorf("%w: gemini: %v", engine.ErrRemoteFailed, err)
	}

	return &engine.Result{
		Content:     strings.TrimSpace(text),
		ProcessTime: e.now().Sub(h.SubmittedAt),
	}, nil
}

// Cancel is a no-op: cancelling the Await context aborts the call.
func (e *Engine) Cancel(ctx context.Context, h *engine.Handle) error {
	return nil
}

// Prompt frames the caller's instruction with the task metadata.
func Prompt(req engine.Request) string {
	var b strings.Builder
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.Mode != "" {
		fmt.Fprintf(&b, "Task type: %s\n", req.Mode)
	}
	if lang := engine.ResolveLanguage(req.TargetLanguage, ""); lang != "" {
		fmt.Fprintf(&b, "Answer in language: %s\n", lang)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(req.Prompt))
	return b.String()
}

// MIMEType guesses the media type from the URL path, defaulting to video/mp4.
func MIMEType(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "video/mp4"
	}
	if t, ok := mimeTypes[strings.ToLower(path.Ext(u.Path))]; ok {
		return t
	}
	return "video/mp4"
}
