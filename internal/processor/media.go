package processor

import (
	"context"
	"fmt"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

// prepareLocal acquires the media as a local artifact and, for engines that
// fetch it over the network, publishes it. The returned release func is
// always safe to call.
func (p *implProcessor) prepareLocal(ctx context.Context, snap task.Snapshot, caps engine.Capabilities, req *engine.Request) (func(), error) {
	release := func() {}

	artifact, err := p.acquisition.Acquire(ctx, acquisition.Request{
		TaskID:    snap.ID,
		SourceURL: snap.Params.VideoURL,
		TimeRange: snap.Params.TimeRange,
		Progress:  p.reporter(snap.ID),
	})
	if err != nil {
		return release, err
	}
	req.LocalPath = artifact.Path
	p.logger.Info(ctx, "Media ready: %s (%d bytes)", artifact.ID, artifact.Size)

	if !caps.NeedsPublicURL {
		// Nobody else reads the artifact once the local engine is done.
		release = func() {
			if err := p.store.Remove(artifact.ID); err != nil {
				p.logger.Warn(ctx, "Failed to remove artifact %s: %v", artifact.ID, err)
			}
		}
		return release, ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return release, err
	}
	p.tasks.UpdateProgress(snap.ID, progressPublishStart, "publishing audio")

	published, err := p.publisher.Publish(ctx, artifact)
	if err != nil {
		return release, fmt.Errorf("publish artifact: %w", err)
	}
	req.MediaURL = published.URL

	// The local file stays until the media janitor evicts it: the remote
	// service may still be fetching it.
	release = func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cancelTimeout)
		defer cancel()
		if err := p.publisher.Unpublish(cleanupCtx, artifact); err != nil {
			p.logger.Warn(ctx, "Failed to unpublish artifact %s: %v", artifact.ID, err)
		}
	}

	p.tasks.UpdateProgress(snap.ID, progressPublished, "audio published")
	p.logger.Info(ctx, "Artifact published until %s", published.ExpiresAt.Format("15:04:05"))
	return release, ctx.Err()
}

// prepareRemote gives direct-link engines a URL they can fetch.
func (p *implProcessor) prepareRemote(ctx context.Context, snap task.Snapshot, caps engine.Capabilities, req *engine.Request) error {
	if snap.Params.TimeRange != "" {
		p.logger.Warn(ctx, "timeRange is ignored by engine %s", snap.Params.Engine)
	}

	if caps.NativeYouTube {
		req.MediaURL = snap.Params.VideoURL
		return ctx.Err()
	}

	p.tasks.UpdateProgress(snap.ID, acquisition.ProgressDownloadStart, "resolving media url")
	direct, err := p.acquisition.ResolveDirectURL(ctx, snap.Params.VideoURL)
	if err != nil {
		return err
	}
	req.MediaURL = direct
	p.tasks.UpdateProgress(snap.ID, engine.ProgressAwaitStart, "media url resolved")
	return ctx.Err()
}

func (p *implProcessor) reporter(taskID string) func(int, string) {
	return func(progress int, stage string) {
		p.tasks.UpdateProgress(taskID, progress, stage)
	}
}
