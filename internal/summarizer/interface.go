package summarizer

import "context"

// Request carries what the caller asked for.
type Request struct {
	Title       string
	Instruction string
	Language    string
}

// Summarizer turns a raw transcript into the text the caller asked for.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, req Request) (string, error)
}
