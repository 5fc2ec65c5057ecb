package origin

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/timkrebs/thumbcache/internal/metrics"
)

// Origin pulls source images from an object-storage bucket into the local
// source directory when a requested source is not yet on disk
type Origin struct {
	client  *minio.Client
	metrics *metrics.OriginMetrics
	bucket  string
}

// Config holds MinIO configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New creates a new origin client
func New(cfg Config) (*Origin, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Origin{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// SetMetrics injects metrics collectors into the origin client
func (o *Origin) SetMetrics(m *metrics.OriginMetrics) {
	o.metrics = m
}

// EnsureBucket creates the bucket if it doesn't exist
func (o *Origin) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Exists reports whether the bucket holds an object under key
func (o *Origin) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Fetch downloads the object under key to destPath, creating parent
// directories as needed
func (o *Origin) Fetch(ctx context.Context, key, destPath string) error {
	start := time.Now()
	status := "success"

	n, err := o.fetch(ctx, key, destPath)

	if err != nil {
		status = "error"
	}
	if o.metrics != nil {
		metrics.RecordDuration(start, o.metrics.FetchDuration.WithLabelValues(status))
		o.metrics.FetchesTotal.WithLabelValues(status).Inc()
		if err == nil {
			o.metrics.BytesFetched.Add(float64(n))
		}
	}

	return err
}

func (o *Origin) fetch(ctx context.Context, key, destPath string) (int64, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create source dir: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create source file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, obj)
	if err != nil {
		// A half-written source would poison every artifact derived from it
		os.Remove(destPath)
		return n, fmt.Errorf("failed to download object: %w", err)
	}
	return n, nil
}

// Health checks if the origin is accessible
func (o *Origin) Health(ctx context.Context) error {
	_, err := o.client.BucketExists(ctx, o.bucket)
	return err
}
