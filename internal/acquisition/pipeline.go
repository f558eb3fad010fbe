package acquisition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

// Progress milestones of the acquisition stages.
const (
	ProgressDownloadStart = 10
	ProgressDownloadEnd   = 40
	ProgressConvertEnd    = 60
)

func (p *implPipeline) Acquire(ctx context.Context, req Request) (mediastore.Artifact, error) {
	report := req.Progress
	if report == nil {
		report = func(int, string) {}
	}

	tr, err := ParseTimeRange(req.TimeRange)
	if err != nil {
		return mediastore.Artifact{}, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return mediastore.Artifact{}, fmt.Errorf("create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(p.tempDir, "task-"+req.TaskID+"-")
	if err != nil {
		return mediastore.Artifact{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Step 1: download
	report(ProgressDownloadStart, "downloading media")
	source, err := p.download(ctx, req.SourceURL, workDir, report)
	if err != nil {
		return mediastore.Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return mediastore.Artifact{}, err
	}
	report(ProgressDownloadEnd, "download complete, converting audio")

	// Step 2: normalize to 16 kHz mono wav
	target := filepath.Join(workDir, "audio.wav")
	onConvert := func(percent int) {
		report(ProgressDownloadEnd+percent*(ProgressConvertEnd-ProgressDownloadEnd)/100, "converting audio")
	}
	if err := p.converter.Convert(ctx, source, target, tr, onConvert); err != nil {
		if ctx.Err() != nil {
			return mediastore.Artifact{}, ctx.Err()
		}
		return mediastore.Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return mediastore.Artifact{}, err
	}

	// Step 3: register
	artifact, err := p.store.Import(ctx, target)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return mediastore.Artifact{}, err
		}
		return mediastore.Artifact{}, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	report(ProgressConvertEnd, "audio ready")

	p.logger.Info(ctx, "Media acquired: %s -> %s", req.SourceURL, artifact.ID)
	return artifact, nil
}
