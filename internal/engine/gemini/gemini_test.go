package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type fakeClient struct {
	parts []*genai.Part
	text  string
	err   error
	block bool
}

func (f *fakeClient) Generate(ctx context.Context, parts ...*genai.Part) (string, error) {
	f.parts = parts
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

var testRequest = engine.Request{
	TaskID:   "t1",
	MediaURL: "https://www.youtube.com/watch?v=abc",
	Prompt:   "Summarize the key points.",
	Title:    "Weekly sync",
	Mode:     "summary",
}

func run(t *testing.T, e *Engine, ctx context.Context) (*engine.Result, error) {
	t.Helper()
	h, err := e.Submit(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return e.Await(ctx, h, func(int, string) {})
}

func TestAwait(t *testing.T) {
	client := &fakeClient{text: "  three key points  "}
	e := newEngine("gemini", client, time.Minute, logger.NewNop())

	if caps := e.Capabilities(); caps.NeedsLocalMedia || caps.NeedsPublicURL || !caps.NativeYouTube {
		t.Errorf("Capabilities() = %+v", caps)
	}

	res, err := run(t, e, context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if res.Content != "three key points" {
		t.Errorf("Content = %q", res.Content)
	}
	if len(client.parts) != 2 {
		t.Fatalf("parts = %d, want prompt and media", len(client.parts))
	}
	if !strings.Contains(client.parts[0].Text, "Summarize the key points.") {
		t.Errorf("prompt part = %q", client.parts[0].Text)
	}
	if fd := client.parts[1].FileData; fd == nil || fd.FileURI != testRequest.MediaURL || fd.MIMEType != "video/mp4" {
		t.Errorf("media part = %+v", client.parts[1].FileData)
	}
}

func TestAwaitErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fetch failure", errors.New("Error 400: Cannot fetch content from the provided URL"), engine.ErrRemoteFetch},
		{"other failure", errors.New("Error 500: internal"), engine.ErrRemoteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine("gemini", &fakeClient{err: tt.err}, time.Minute, logger.NewNop())
			if _, err := run(t, e, context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Await() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAwaitTimeoutAndCancel(t *testing.T) {
	e := newEngine("gemini", &fakeClient{block: true}, 20*time.Millisecond, logger.NewNop())
	if _, err := run(t, e, context.Background()); !errors.Is(err, engine.ErrRemoteTimeout) {
		t.Errorf("Await() error = %v, want ErrRemoteTimeout", err)
	}

	e = newEngine("gemini", &fakeClient{block: true}, time.Minute, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if _, err := run(t, e, ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}
}

func TestPrompt(t *testing.T) {
	got := Prompt(engine.Request{Title: "T", Mode: "clip", TargetLanguage: "en", Prompt: " do it "})
	want := "Title: T\nTask type: clip\nAnswer in language: en\n\ndo it"
	if got != want {
		t.Errorf("Prompt() = %q, want %q", got, want)
	}
	if got := Prompt(engine.Request{Prompt: "only"}); got != "only" {
		t.Errorf("Prompt() = %q, want %q", got, "only")
	}
}

func TestMIMEType(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/a.MP3?sig=1": "audio/mpeg",
		"https://cdn.example.com/a.webm":      "video/webm",
		"https://cdn.example.com/a":           "video/mp4",
		"https://youtu.be/abc":                "video/mp4",
	}
	for in, want := range tests {
		if got := MIMEType(in); got != want {
			t.Errorf("MIMEType(%q) = %q, want %q", in, got, want)
		}
	}
}
