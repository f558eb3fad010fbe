package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

type engineSet map[string]bool

func (s engineSet) Has(name string) bool { return s[name] }

type testServer struct {
	router *gin.Engine
	tasks  task.Manager
	store  mediastore.Store
	codec  *signedurl.Codec
}

func newTestServer(t *testing.T, queueSize int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := mediastore.New(t.TempDir(), time.Hour, time.Minute, logger.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New() error = %v", err)
	}
	codec, err := signedurl.New("test-secret", "https://media.example.com")
	if err != nil {
		t.Fatalf("signedurl.New() error = %v", err)
	}
	tasks := task.New(engineSet{"local": true}, queueSize, logger.NewNop())

	h := NewHandler(Deps{
		Tasks:   tasks,
		Store:   store,
		Codec:   codec,
		Engines: func() []string { return []string{"local"} },
		TempDir: t.TempDir(),
		Logger:  logger.NewNop(),
	})
	return &testServer{router: NewRouter(h), tasks: tasks, store: store, codec: codec}
}

func (s *testServer) do(method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not json: %q", w.Body.String())
	}
	return m
}

func generateBody(videoURL, prompt, engineName string) map[string]any {
	return map[string]any{
		"video_url": videoURL,
		"params": map[string]any{
			"title":  "Demo",
			"type":   "summary",
			"engine": engineName,
			"prompt": prompt,
		},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 4)
	w := s.do(http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Errorf("GET /health = %d %s", w.Code, w.Body.String())
	}
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"accepted", generateBody("https://example.com/v.mp4", "summarize", "local"), http.StatusAccepted},
		{"missing url", generateBody("", "summarize", "local"), http.StatusBadRequest},
		{"missing prompt", generateBody("https://example.com/v.mp4", "", "local"), http.StatusBadRequest},
		{"bad scheme", generateBody("ftp://example.com/v.mp4", "x", "local"), http.StatusBadRequest},
		{"unknown engine", generateBody("https://example.com/v.mp4", "x", "nope"), http.StatusBadRequest},
		{"bad time range", map[string]any{
			"video_url": "https://example.com/v.mp4",
			"params":    map[string]any{"engine": "local", "prompt": "x", "timeRange": "later"},
		}, http.StatusBadRequest},
		{"non-finite time range", map[string]any{
			"video_url": "https://example.com/v.mp4",
			"params":    map[string]any{"engine": "local", "prompt": "x", "timeRange": "NaN-00:00:10"},
		}, http.StatusBadRequest},
		{"oversized time range", map[string]any{
			"video_url": "https://example.com/v.mp4",
			"params":    map[string]any{"engine": "local", "prompt": "x", "timeRange": "0-1e30"},
		}, http.StatusBadRequest},
		{"bad type", map[string]any{
			"video_url": "https://example.com/v.mp4",
			"params":    map[string]any{"engine": "local", "prompt": "x", "type": "poem"},
		}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 4)
			w := s.do(http.MethodPost, "/api/generate", tt.body)
			if w.Code != tt.want {
				t.Fatalf("POST /api/generate = %d %s, want %d", w.Code, w.Body.String(), tt.want)
			}
			if tt.want != http.StatusAccepted {
				return
			}
			resp := decode(t, w)
			if resp["taskId"] == "" || resp["status"] != "PENDING" || resp["code"] != float64(202) {
				t.Errorf("response = %v", resp)
			}
		})
	}
}

func TestCreateTaskUnsupportedEngineMessage(t *testing.T) {
	s := newTestServer(t, 4)
	w := s.do(http.MethodPost, "/api/generate", generateBody("https://example.com/v.mp4", "x", "nope"))
	if !strings.Contains(decode(t, w)["error"].(string), "unsupported engine") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateTaskQueueFull(t *testing.T) {
	s := newTestServer(t, 1)
	body := generateBody("https://example.com/v.mp4", "x", "local")

	if w := s.do(http.MethodPost, "/api/generate", body); w.Code != http.StatusAccepted {
		t.Fatalf("first POST = %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/generate", body); w.Code != http.StatusServiceUnavailable {
		t.Errorf("second POST = %d, want 503", w.Code)
	}
}

func TestGetAndCancelTask(t *testing.T) {
	s := newTestServer(t, 4)
	id, err := s.tasks.Create(context.Background(), task.Params{VideoURL: "https://example.com/v.mp4", Prompt: "x", Engine: "local"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	w := s.do(http.MethodGet, "/api/generate/"+id, nil)
	resp := decode(t, w)
	if w.Code != http.StatusOK || resp["status"] != "PENDING" || resp["code"] != float64(202) {
		t.Fatalf("GET = %d %v", w.Code, resp)
	}

	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPost, "/api/generate/"+id+"/cancel", nil)
		resp = decode(t, w)
		if w.Code != http.StatusOK || resp["status"] != "CANCELED" {
			t.Fatalf("cancel #%d = %d %v", i+1, w.Code, resp)
		}
	}

	resp = decode(t, s.do(http.MethodGet, "/api/generate/"+id, nil))
	if resp["code"] != float64(499) || resp["detail"] == nil {
		t.Errorf("canceled task = %v", resp)
	}
}

func TestGetSucceededTask(t *testing.T) {
	s := newTestServer(t, 4)
	id, _ := s.tasks.Create(context.Background(), task.Params{VideoURL: "https://example.com/v.mp4", Prompt: "x", Engine: "local"})
	s.tasks.MarkRunning(context.Background(), id)
	s.tasks.Succeed(id, "the answer", 1500*time.Millisecond)

	resp := decode(t, s.do(http.MethodGet, "/api/generate/"+id, nil))
	if resp["content"] != "the answer" || resp["processTime"] != 1.5 || resp["progress"] != float64(100) || resp["code"] != float64(200) {
		t.Errorf("response = %v", resp)
	}
}

func TestUnknownTask(t *testing.T) {
	s := newTestServer(t, 4)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/generate/missing"},
		{http.MethodPost, "/api/generate/missing/cancel"},
		{http.MethodGet, "/api/generate/missing/export"},
	}
	for _, p := range paths {
		if w := s.do(p.method, p.path, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", p.method, p.path, w.Code)
		}
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, 4)
	id, _ := s.tasks.Create(context.Background(), task.Params{VideoURL: "https://example.com/v.mp4", Prompt: "x", Title: "Weekly sync", Engine: "local"})

	if w := s.do(http.MethodGet, "/api/generate/"+id+"/export", nil); w.Code != http.StatusConflict {
		t.Errorf("export of pending task = %d, want 409", w.Code)
	}

	s.tasks.MarkRunning(context.Background(), id)
	s.tasks.Succeed(id, "# Notes\n- one", time.Second)

	w := s.do(http.MethodGet, "/api/generate/"+id+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != docxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Weekly sync.docx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("export is not a zip container")
	}
}

func importArtifact(t *testing.T, s *testServer, data []byte) mediastore.Artifact {
	t.Helper()
	src := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := s.store.Import(context.Background(), src)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return a
}

// signedPath mints a link and returns its path and query.
func signedPath(t *testing.T, s *testServer, fileID string, ttl time.Duration) string {
	t.Helper()
	raw, _, err := s.codec.Mint(fileID, ttl)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.RequestURI()
}

func TestPublicMediaServesFile(t *testing.T) {
	s := newTestServer(t, 4)
	data := []byte("RIFF....WAVEfmt data")
	a := importArtifact(t, s, data)

	w := s.do(http.MethodGet, signedPath(t, s, a.ID, time.Hour), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET = %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestPublicMediaRange(t *testing.T) {
	s := newTestServer(t, 4)
	a := importArtifact(t, s, []byte("0123456789"))

	req := httptest.NewRequest(http.MethodGet, signedPath(t, s, a.ID, time.Hour), nil)
	req.Header.Set("Range", "bytes=2-5")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusPartialContent || w.Body.String() != "2345" {
		t.Errorf("range GET = %d %q", w.Code, w.Body.String())
	}
}

func TestPublicMediaRejectsUniformly(t *testing.T) {
	s := newTestServer(t, 4)
	a := importArtifact(t, s, []byte("audio"))
	missingID := strings.Repeat("0", 32) + ".wav"

	valid := signedPath(t, s, a.ID, time.Hour)
	u, _ := url.Parse(valid)
	q := u.Query()

	tampered := url.Values{"expires": {q.Get("expires")}, "sign": {strings.Repeat("ab", 32)}}
	past := time.Now().Add(-time.Minute).Unix()
	expired := url.Values{"expires": {strconv.FormatInt(past, 10)}, "sign": {s.codec.Sign(a.ID, past)}}

	targets := map[string]string{
		"bad signature":   "/api/public-media/" + a.ID + "?" + tampered.Encode(),
		"no query":        "/api/public-media/" + a.ID,
		"expired":         "/api/public-media/" + a.ID + "?" + expired.Encode(),
		"malformed id":    "/api/public-media/not-an-id.wav?" + q.Encode(),
		"signed, missing": signedPath(t, s, missingID, time.Hour),
		"other file sign": "/api/public-media/" + missingID + "?" + q.Encode(),
	}

	var first string
	for name, target := range targets {
		w := s.do(http.MethodGet, target, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", name, w.Code)
			continue
		}
		if first == "" {
			first = w.Body.String()
		}
		if w.Body.String() != first {
			t.Errorf("%s: body %q differs from %q", name, w.Body.String(), first)
		}
	}
	if first != `{"error":"forbidden"}` {
		t.Errorf("forbidden body = %q", first)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 4)
	w := s.do(http.MethodOptions, "/api/generate", nil)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("OPTIONS = %d %v", w.Code, w.Header())
	}
}
