//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/httpapi"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/processor"
	"github.com/nguyentantai21042004/vidscribe/internal/publisher"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

// stubEngine answers with a canned transcript, optionally after blocking
// until its context is canceled.
type stubEngine struct {
	name string
	mu   sync.Mutex
	slow bool
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Capabilities() engine.Capabilities {
	return engine.Capabilities{NeedsLocalMedia: true}
}

func (e *stubEngine) Submit(ctx context.Context, req engine.Request) (*engine.Handle, error) {
	return &engine.Handle{TaskID: req.TaskID, Engine: e.name, SubmittedAt: time.Now(), Request: req}, nil
}

func (e *stubEngine) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	progress(engine.ScalePercent(50), "transcribing")
	e.mu.Lock()
	slow := e.slow
	e.mu.Unlock()
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &engine.Result{Content: "transcript of " + h.Request.SourceURL, ProcessTime: time.Millisecond}, nil
}

func (e *stubEngine) Cancel(ctx context.Context, h *engine.Handle) error { return nil }

// stubAcquisition imports a small wav file instead of downloading.
type stubAcquisition struct {
	store mediastore.Store
	dir   string
}

func (a *stubAcquisition) Acquire(ctx context.Context, req acquisition.Request) (mediastore.Artifact, error) {
	src := filepath.Join(a.dir, req.TaskID+".wav")
	if err := os.WriteFile(src, []byte("RIFF0000WAVE"), 0o644); err != nil {
		return mediastore.Artifact{}, err
	}
	req.Progress(acquisition.ProgressConvertEnd, "audio ready")
	return a.store.Import(ctx, src)
}

func (a *stubAcquisition) ResolveDirectURL(ctx context.Context, sourceURL string) (string, error) {
	return sourceURL, nil
}

type world struct {
	server *httptest.Server
	cancel context.CancelFunc
	pool   *task.Pool
	store  mediastore.Store
	codec  *signedurl.Codec
	engine *stubEngine
	dir    string

	status   int
	body     []byte
	header   http.Header
	taskID   string
	artifact mediastore.Artifact
}

func (w *world) start(engineName string) error {
	gin.SetMode(gin.TestMode)
	dir, err := os.MkdirTemp("", "vidscribe-features-*")
	if err != nil {
		return err
	}
	w.dir = dir
	log := logger.NewNop()

	w.store, err = mediastore.New(filepath.Join(dir, "media"), time.Hour, time.Minute, log)
	if err != nil {
		return err
	}
	w.codec, err = signedurl.New("feature-secret", "http://127.0.0.1")
	if err != nil {
		return err
	}

	w.engine = &stubEngine{name: engineName}
	reg := engine.NewRegistry()
	if err := reg.Register(w.engine); err != nil {
		return err
	}

	tasks := task.New(reg, 16, log)
	acq := &stubAcquisition{store: w.store, dir: dir}
	proc := processor.New(tasks, reg, acq, publisher.NewGateway(w.codec, time.Hour), w.store, log)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.pool = task.NewPool(tasks, 2, proc.Process, log)
	w.pool.Start(ctx)

	handler := httpapi.NewHandler(httpapi.Deps{
		Tasks:   tasks,
		Store:   w.store,
		Codec:   w.codec,
		Engines: reg.Names,
		TempDir: dir,
		Logger:  log,
	})
	w.server = httptest.NewServer(httpapi.NewRouter(handler))
	return nil
}

func (w *world) stop() {
	if w.server != nil {
		w.server.Close()
	}
	if w.cancel != nil {
		w.cancel()
		w.pool.Wait()
	}
	if w.dir != "" {
		os.RemoveAll(w.dir)
	}
}

func (w *world) request(method, path string, body any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, w.server.URL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	w.status = resp.StatusCode
	w.header = resp.Header
	w.body, err = io.ReadAll(resp.Body)
	return err
}

func (w *world) json() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(w.body, &m); err != nil {
		return nil, fmt.Errorf("response is not json: %q", w.body)
	}
	return m, nil
}
