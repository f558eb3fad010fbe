package llm

import (
	"sync"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

type implClient struct {
	apiKeys  []string
	model    string
	logger   logger.Logger
	generate GenerateFunc

	mu         sync.Mutex
	currentKey int
}

// Option configures the client.
type Option func(*implClient)

// WithGenerateFunc replaces the Gemini call (for testing).
func WithGenerateFunc(f GenerateFunc) Option {
	return func(c *implClient) {
		c.generate = f
	}
}

// New creates a Client that rotates through the supplied Gemini API keys.
func New(apiKeys []string, model string, log logger.Logger, opts ...Option) Client {
	if model == "" {
		model = DefaultModel
	}
	c := &implClient{
		apiKeys:  apiKeys,
		model:    model,
		logger:   log,
		generate: generateContent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
