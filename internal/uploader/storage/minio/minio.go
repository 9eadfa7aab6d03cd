// Package minio implements storage.Client on a MinIO (S3 compatible) bucket.
// Object keys are the storage paths without their leading slash.
package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectPutter is the subset of *minio.Client used here.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Client writes objects into one bucket.
type Client struct {
	putter ObjectPutter
	bucket string
	logger *zap.Logger
}

// New connects to MinIO and creates the bucket when it does not exist.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return NewWithPutter(cli, cfg.Bucket, logger), nil
}

// NewWithPutter wraps an existing putter.
func NewWithPutter(putter ObjectPutter, bucket string, logger *zap.Logger) *Client {
	return &Client{
		putter: putter,
		bucket: bucket,
		logger: logger.Named("minio"),
	}
}

// Upload writes obj to the bucket. MinIO replaces existing keys.
func (c *Client) Upload(ctx context.Context, obj storage.Object) error {
	key := strings.TrimPrefix(obj.Path, "/")
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := obj.Size
	if size <= 0 {
		size = -1
	}

	info, err := c.putter.PutObject(ctx, c.bucket, key, obj.Content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}

	c.logger.Debug("Object stored",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)
	return nil
}

var _ storage.Client = (*Client)(nil)
