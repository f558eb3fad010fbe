package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyTranscript is returned when there is nothing to summarize.
var ErrEmptyTranscript = errors.New("empty transcript")

const summaryPrompt = `You are an expert analyst of recorded talks, meetings and training videos. Using the transcript below, follow the user's instruction.

Requirements:
- Start with a one-sentence overview of what the video is about
- Cover every main point in the order it appears
- Keep domain terms as spoken
- Use markdown: headings, bullet points, bold for key terms
%s
Title: %s

Instruction:
%s

Transcript:
---
%s
---`

// Summarize sends the transcript and instruction to Gemini and returns the
// markdown answer.
func (s *implSummarizer) Summarize(ctx context.Context, transcript string, req Request) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "(untitled)"
	}
	langLine := ""
	if req.Language != "" {
		langLine = fmt.Sprintf("- Write the answer in language: %s\n", req.Language)
	}
	prompt := fmt.Sprintf(summaryPrompt, langLine, title, strings.TrimSpace(req.Instruction), transcript)

	s.logger.Info(ctx, "Summarizing transcript (%d chars): %s", len(transcript), title)

	summary, err := s.client.Generate(ctx, genai.NewPartFromText(prompt))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("summarize: empty response from Gemini")
	}
	return summary, nil
}
