package processor

import (
	"context"
	"strings"

	"github.com/nguyentantai21042004/vidscribe/internal/summarizer"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

// TypeSummary is the task type that asks for a summary instead of a raw
// transcript.
const TypeSummary = "summary"

// summarize turns a transcript into the requested summary when the
// summarizer is enabled. Any failure keeps the transcript.
func (p *implProcessor) summarize(ctx context.Context, snap task.Snapshot, transcript string) string {
	if p.summarizer == nil || snap.Params.Type != TypeSummary || strings.TrimSpace(transcript) == "" {
		return transcript
	}

	p.tasks.UpdateProgress(snap.ID, progressSummarize, "summarizing")
	summary, err := p.summarizer.Summarize(ctx, transcript, summarizer.Request{
		Title:       snap.Params.Title,
		Instruction: snap.Params.Prompt,
		Language:    snap.Params.Option("targetLanguage"),
	})
	if err != nil {
		p.logger.Warn(ctx, "Summary failed, returning transcript: %v", err)
		return transcript
	}
	return summary
}
