package storage

import (
	"context"
	"fmt"
	"io"

	types "AssetForge/pkg"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioProvider targets MinIO and other S3-compatible endpoints that speak
// the minio wire protocol.
type MinioProvider struct {
	cli    *minio.Client
	bucket string
}

var _ Provider = (*MinioProvider)(nil)

func NewMinioProvider(cfg types.MinioConfig) (*MinioProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is empty")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is empty")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioProvider{cli: cli, bucket: cfg.Bucket}, nil
}

func (m *MinioProvider) Upload(ctx context.Context, p string, body io.Reader) error {
	key := normalizeKey(p)
	_, err := m.cli.PutObject(ctx, m.bucket, key, body, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (m *MinioProvider) GetFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	key := normalizeKey(p)
	obj, err := m.cli.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return obj, nil
}

func (m *MinioProvider) Exists(ctx context.Context, p string) (bool, error) {
	key := normalizeKey(p)
	_, err := m.cli.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

func (m *MinioProvider) Delete(ctx context.Context, p string) error {
	key := normalizeKey(p)
	if err := m.cli.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (m *MinioProvider) DeleteDirectory(ctx context.Context, p string) error {
	prefix := normalizeKey(p) + "/"

	toDelete := make(chan minio.ObjectInfo, 10)
	errCh := m.cli.RemoveObjects(ctx, m.bucket, toDelete, minio.RemoveObjectsOptions{})

	listed := m.cli.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var listErr error
	for obj := range listed {
		if obj.Err != nil {
			listErr = obj.Err
			continue
		}
		toDelete <- obj
	}
	close(toDelete)
	if listErr != nil {
		return fmt.Errorf("failed to list %s: %w", prefix, listErr)
	}

	for removeErr := range errCh {
		if removeErr.Err != nil {
			return fmt.Errorf("failed to delete %s: %w", removeErr.ObjectName, removeErr.Err)
		}
	}
	return nil
}

func (m *MinioProvider) GetPathStats(ctx context.Context, p string) (*PathStats, error) {
	key := normalizeKey(p)
	info, err := m.cli.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return &PathStats{Size: info.Size, ModTime: info.LastModified}, nil
}
