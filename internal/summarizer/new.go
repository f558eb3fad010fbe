package summarizer

import (
	"github.com/nguyentantai21042004/vidscribe/internal/llm"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

type implSummarizer struct {
	client llm.Client
	logger logger.Logger
}

// New creates a Summarizer backed by a key-rotating Gemini client.
func New(client llm.Client, log logger.Logger) Summarizer {
	return &implSummarizer{
		client: client,
		logger: log,
	}
}
