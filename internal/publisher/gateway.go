package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
)

type gatewayPublisher struct {
	codec *signedurl.Codec
	ttl   time.Duration
}

// NewGateway publishes artifacts through this service's own signed
// /api/public-media route.
func NewGateway(codec *signedurl.Codec, ttl time.Duration) Publisher {
	return &gatewayPublisher{codec: codec, ttl: ttl}
}

func (g *gatewayPublisher) Publish(ctx context.Context, a mediastore.Artifact) (Published, error) {
	u, exp, err := g.codec.Mint(a.ID, g.ttl)
	if err != nil {
		return Published{}, fmt.Errorf("mint signed url: %w", err)
	}
	return Published{URL: u, ExpiresAt: exp}, nil
}

// Unpublish is a no-op: signed links expire on their own and the file is
// owned by the media store.
func (g *gatewayPublisher) Unpublish(ctx context.Context, a mediastore.Artifact) error {
	return nil
}
