package publisher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

// objectStore is the subset of *minio.Client the publisher uses.
type objectStore interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

type minioPublisher struct {
	client objectStore
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewMinio uploads artifacts to an S3-compatible bucket and hands out
// presigned GET URLs, for deployments without a public tunnel.
func NewMinio(cfg config.MinioConfig, ttl time.Duration) (Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}
	return newMinioPublisher(client, cfg.Bucket, ttl), nil
}

func newMinioPublisher(client objectStore, bucket string, ttl time.Duration) *minioPublisher {
	return &minioPublisher{client: client, bucket: bucket, ttl: ttl, now: time.Now}
}

func (m *minioPublisher) Publish(ctx context.Context, a mediastore.Artifact) (Published, error) {
	if _, err := m.client.FPutObject(ctx, m.bucket, a.ID, a.Path, minio.PutObjectOptions{
		ContentType: a.ContentType,
	}); err != nil {
		return Published{}, fmt.Errorf("upload artifact: %w", err)
	}

	expiresAt := m.now().Add(m.ttl)
	u, err := m.client.PresignedGetObject(ctx, m.bucket, a.ID, m.ttl, nil)
	if err != nil {
		return Published{}, fmt.Errorf("presign artifact: %w", err)
	}
	return Published{URL: u.String(), ExpiresAt: expiresAt}, nil
}

func (m *minioPublisher) Unpublish(ctx context.Context, a mediastore.Artifact) error {
	if err := m.client.RemoveObject(ctx, m.bucket, a.ID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
