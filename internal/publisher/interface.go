package publisher

import (
	"context"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

// Published is a time-limited public URL for an artifact.
type Published struct {
	URL       string
	ExpiresAt time.Time
}

// Publisher makes local artifacts reachable by remote engines.
type Publisher interface {
	Publish(ctx context.Context, artifact mediastore.Artifact) (Published, error)
	// Unpublish revokes what Publish created, where the backend allows it.
	Unpublish(ctx context.Context, artifact mediastore.Artifact) error
}
