package local

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

var (
	whisperProgress = regexp.MustCompile(`\[progress\]\s+(\d+)%`)
	whisperPosition = regexp.MustCompile(`\(([\d.]+)s\s*/\s*([\d.]+)s\)`)
)

// Whisper drives the faster-whisper transcription script.
type Whisper struct {
	runner
	format      string
	defaultLang string
	executor    executor.Executor
	logger      logger.Logger
}

// NewWhisper creates a whisper engine registered as name.
func NewWhisper(name string, cfg config.EngineConfig, exec executor.Executor, log logger.Logger) *Whisper {
	return &Whisper{
		runner: runner{
			name:    name,
			command: cfg.Command,
			timeout: cfg.Timeout,
			now:     time.Now,
		},
		format:      cfg.Format,
		defaultLang: cfg.DefaultLanguage,
		executor:    exec,
		logger:      log,
	}
}

// Args builds the script arguments for one run.
func (w *Whisper) Args(req engine.Request) []string {
	// <command...> <audio> --format <json|txt> [--language <code>]
	args := append([]string{}, w.command[1:]...)
	args = append(args, req.LocalPath, "--format", w.format)
	if lang := engine.ResolveLanguage(req.SourceLanguage, w.defaultLang); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

func (w *Whisper) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	runCtx, cancel := w.withTimeout(ctx)
	defer cancel()

	w.logger.Info(ctx, "Starting transcription with %s: %s", w.name, h.Request.LocalPath)
	progress(engine.ProgressAwaitStart, "transcribing")

	onLine := func(line string) {
		m := whisperProgress.FindStringSubmatch(line)
		if m == nil {
			return
		}
		percent, _ := strconv.Atoi(m[1])
		stage := fmt.Sprintf("transcribing %d%%", percent)
		if pos := whisperPosition.FindStringSubmatch(line); pos != nil {
			stage = fmt.Sprintf("transcribing %d%% (%ss / %ss)", percent, pos[1], pos[2])
		}
		progress(engine.ScalePercent(percent), stage)
	}

	stdout, err := w.executor.Stream(runCtx, onLine, w.command[0], w.Args(h.Request)...)
	if err != nil {
		return nil, w.runError(ctx, runCtx, err)
	}

	text, err := w.parse(stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrLocalFailed, w.name, err)
	}

	elapsed := w.now().Sub(h.SubmittedAt)
	w.logger.Info(ctx, "Transcription completed with %s in %s", w.name, elapsed)
	return &engine.Result{Content: text, ProcessTime: elapsed}, nil
}

type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// parse extracts the transcript. JSON output prefers the joined segments
// over the top-level text.
func (w *Whisper) parse(stdout string) (string, error) {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return "", fmt.Errorf("no output")
	}
	if w.format != "json" {
		return stdout, nil
	}

	var out whisperOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return "", fmt.Errorf("parse json output: %w", err)
	}
	if len(out.Segments) > 0 {
		var b strings.Builder
		for _, seg := range out.Segments {
			b.WriteString(seg.Text)
		}
		return strings.TrimSpace(b.String()), nil
	}
	return strings.TrimSpace(out.Text), nil
}
