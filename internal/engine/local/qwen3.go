package local

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

const qwenProgressStep = 2 * time.Second

// Qwen3 drives the Qwen3-ASR script. The script reports no percentage, so
// progress advances with elapsed time.
type Qwen3 struct {
	runner
	defaultLang string
	tick        time.Duration
	executor    executor.Executor
	logger      logger.Logger
}

// NewQwen3 creates a qwen3_asr engine registered as name.
func NewQwen3(name string, cfg config.EngineConfig, exec executor.Executor, log logger.Logger) *Qwen3 {
	return &Qwen3{
		runner: runner{
			name:    name,
			command: cfg.Command,
			timeout: cfg.Timeout,
			now:     time.Now,
		},
		defaultLang: cfg.DefaultLanguage,
		tick:        time.Second,
		executor:    exec,
		logger:      log,
	}
}

func (q *Qwen3) Args(req engine.Request) []string {
	args := append([]string{}, q.command[1:]...)
	args = append(args, req.LocalPath)
	if lang := engine.ResolveLanguage(req.SourceLanguage, q.defaultLang); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

func (q *Qwen3) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	runCtx, cancel := q.withTimeout(ctx)
	defer cancel()

	q.logger.Info(ctx, "Starting transcription with %s: %s", q.name, h.Request.LocalPath)

	var mu sync.Mutex
	device := ""
	onLine := func(line string) {
		// "[device] using cuda (float16)" or "[device] fallback to cpu (float32), reason: ..."
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "[device] ")
		if !ok {
			return
		}
		rest, _, _ = strings.Cut(rest, ",")
		mu.Lock()
		device = rest
		mu.Unlock()
	}

	start := q.now()
	report := func() {
		stage := "transcribing"
		mu.Lock()
		if device != "" {
			stage = fmt.Sprintf("transcribing (device: %s)", device)
		}
		mu.Unlock()
		progress(engine.ElapsedProgress(engine.ProgressAwaitStart, q.now().Sub(start), qwenProgressStep), stage)
	}
	report()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(q.tick)
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

	stdout, err := q.executor.Stream(runCtx, onLine, q.command[0], q.Args(h.Request)...)
	close(done)
	wg.Wait()

	if err != nil {
		return nil, q.runError(ctx, runCtx, err)
	}

	elapsed := q.now().Sub(h.SubmittedAt)
	q.logger.Info(ctx, "Transcription completed with %s in %s", q.name, elapsed)
	return &engine.Result{Content: strings.TrimSpace(stdout), ProcessTime: elapsed}, nil
}
