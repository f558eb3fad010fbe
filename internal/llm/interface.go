package llm

import (
	"context"

	"google.golang.org/genai"
)

// Client generates text with Gemini, rotating through API keys when one is
// rate limited.
type Client interface {
	Generate(ctx context.Context, parts ...*genai.Part) (string, error)
}
