// Package doubao implements the Volcengine openspeech "bigmodel" file
// recognition API: submit a public audio URL, then poll for the result.
// Job state travels in response headers, not in the body.
package doubao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

// Status codes carried in X-Api-Status-Code.
const (
	StatusOK         = "20000000"
	StatusProcessing = "20000001"
	StatusQueued     = "20000002"
	StatusSilent     = "20000003"
	StatusInvalidURI = "45000006"
)

const (
	headerStatusCode = "X-Api-Status-Code"
	headerMessage    = "X-Api-Message"

	progressSubmitted = 65
	progressStep      = 2 * time.Second
)

var locales = map[string]string{
	"zh":    "zh-CN",
	"zh-cn": "zh-CN",
	"cn":    "zh-CN",
	"en":    "en-US",
	"ja":    "ja-JP",
	"id":    "id-ID",
	"es":    "es-MX",
	"pt":    "pt-BR",
	"de":    "de-DE",
	"fr":    "fr-FR",
	"ko":    "ko-KR",
	"fil":   "fil-PH",
	"ms":    "ms-MY",
	"th":    "th-TH",
	"ar":    "ar-SA",
}

// Locale maps a caller language to a doubao locale. Unknown or "auto"
// yields "" and the service detects the language.
func Locale(raw string) string {
	return locales[strings.ToLower(strings.TrimSpace(raw))]
}

type Engine struct {
	name   string
	cfg    config.EngineConfig
	client *http.Client
	logger logger.Logger
	now    func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithHTTPClient sets the client used for submit and query calls.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// New creates a doubao engine registered as name.
func New(name string, cfg config.EngineConfig, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{NeedsLocalMedia: true, NeedsPublicURL: true}
}

type submitPayload struct {
	User    submitUser    `json:"user"`
	Audio   submitAudio   `json:"audio"`
	Request submitRequest `json:"request"`
}

type submitUser struct {
	UID string `json:"uid"`
}

type submitAudio struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Rate     int    `json:"rate"`
	Bits     int    `json:"bits"`
	Channel  int    `json:"channel"`
	Language string `json:"language,omitempty"`
}

type submitRequest struct {
	ModelName      string `json:"model_name"`
	EnableITN      bool   `json:"enable_itn"`
	EnablePunc     bool   `json:"enable_punc"`
	ShowUtterances bool   `json:"show_utterances"`
}

type queryResponse struct {
	Result struct {
		Text string `json:"text"`
	} `json:"result"`
}

// payload builds the submit body for a request.
func payload(req engine.Request) submitPayload {
	uid := req.TaskID
	if len(uid) > 12 {
		uid = uid[:12]
	}
	return submitPayload{
		User: submitUser{UID: "vidscribe-" + uid},
		Audio: submitAudio{
			URL:      req.MediaURL,
			Format:   audioFormat(req.LocalPath),
			Rate:     16000,
			Bits:     16,
			Channel:  1,
			Language: Locale(req.SourceLanguage),
		},
		Request: submitRequest{
			ModelName:      "bigmodel",
			EnableITN:      true,
			EnablePunc:     true,
			ShowUtterances: true,
		},
	}
}

func (e *Engine) Submit(ctx context.Context, req engine.Request) (*engine.Handle, error) {
	if req.MediaURL == "" {
		return nil, fmt.Errorf("%s: no public media url", e.name)
	}

	body, err := json.Marshal(payload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}

	requestID := uuid.NewString()
	status, message, _, err := e.call(ctx, e.cfg.SubmitURL, requestID, body, true)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, statusError(status, message)
	}

	e.logger.Info(ctx, "Doubao job submitted: %s", requestID)
	return &engine.Handle{
		TaskID:      req.TaskID,
		Engine:      e.name,
		ExternalRef: requestID,
		SubmittedAt: e.now(),
		Request:     req,
	}, nil
}

func (e *Engine) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	progress(progressSubmitted, "doubao job submitted, waiting for recognition")

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elapsed := e.now().Sub(h.SubmittedAt)
		if e.cfg.Timeout > 0 && elapsed > e.cfg.Timeout {
			return nil, fmt.Errorf("%w: doubao job %s after %s", engine.ErrRemoteTimeout, h.ExternalRef, e.cfg.Timeout)
		}

		status, message, body, err := e.call(ctx, e.cfg.QueryURL, h.ExternalRef, []byte("{}"), false)
		if err != nil {
			return nil, err
		}

		switch status {
		case StatusOK:
			var resp queryResponse
			if len(bytes.TrimSpace(body)) > 0 {
				if err := json.Unmarshal(body, &resp); err != nil {
					return nil, fmt.Errorf("%w: decode doubao result: %v", engine.ErrRemoteFailed, err)
				}
			}
			text := strings.TrimSpace(resp.Result.Text)
			if text == "" {
				return nil, fmt.Errorf("%w: doubao job %s succeeded without text", engine.ErrRemoteFailed, h.ExternalRef)
			}
			return &engine.Result{
				Content:     text,
				ProcessTime: e.now().Sub(h.SubmittedAt),
			}, nil

		case StatusProcessing, StatusQueued:
			progress(engine.ElapsedProgress(progressSubmitted, elapsed, progressStep), "doubao recognizing")
			if err := sleep(ctx, e.cfg.PollInterval); err != nil {
				return nil, err
			}

		default:
			return nil, statusError(status, message)
		}
	}
}

// Cancel is a no-op: the openspeech file API has no cancel call.
func (e *Engine) Cancel(ctx context.Context, h *engine.Handle) error {
	return nil
}

// call POSTs body and returns the status headers and the response body.
func (e *Engine) call(ctx context.Context, url, requestID string, body []byte, submit bool) (string, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", nil, fmt.Errorf("build doubao request: %w", err)
	}
	e.setHeaders(req, requestID, submit)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", nil, ctx.Err()
		}
		return "", "", nil, fmt.Errorf("%w: doubao request: %v", engine.ErrRemoteFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		if ctx.Err() != nil {
			return "", "", nil, ctx.Err()
		}
		return "", "", nil, fmt.Errorf("%w: read doubao response: %v", engine.ErrRemoteFailed, err)
	}

	status := strings.TrimSpace(resp.Header.Get(headerStatusCode))
	message := strings.TrimSpace(resp.Header.Get(headerMessage))
	return status, message, data, nil
}

// setHeaders supports both auth styles: a single API key (sent as both the
// access key and a bearer token) or the legacy app key plus access key pair.
func (e *Engine) setHeaders(req *http.Request, requestID string, submit bool) {
	accessKey := e.cfg.AccessKey
	if e.cfg.APIKey != "" {
		accessKey = e.cfg.APIKey
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Access-Key", accessKey)
	req.Header.Set("X-Api-Resource-Id", e.cfg.ResourceID)
	req.Header.Set("X-Api-Request-Id", requestID)
	if submit {
		req.Header.Set("X-Api-Sequence", "-1")
	}
	if e.cfg.AppKey != "" {
		req.Header.Set("X-Api-App-Key", e.cfg.AppKey)
	}
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
}

func statusError(status, message string) error {
	switch status {
	case StatusInvalidURI:
		return fmt.Errorf("%w: doubao could not download the audio (Invalid audio URI); "+
			"the published link is unreachable from the internet or has expired, "+
			"check public_media.base_url points at a working tunnel and the link TTL", engine.ErrRemoteFetch)
	case StatusSilent:
		return fmt.Errorf("%w: doubao recognition failed: silent audio", engine.ErrNoSpeech)
	}
	if message != "" {
		return fmt.Errorf("%w: doubao status %s: %s", engine.ErrRemoteFailed, status, message)
	}
	return fmt.Errorf("%w: doubao status %q", engine.ErrRemoteFailed, status)
}

func audioFormat(path string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case "wav", "mp3", "ogg", "raw":
		return ext
	}
	return "wav"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
