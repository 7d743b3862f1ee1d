package storage

import (
	"context"
	"fmt"

	types "AssetForge/pkg"
)

func NewProvider(ctx context.Context, cfg types.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Provider(cfg.S3)
	case "minio":
		return NewMinioProvider(cfg.Minio)
	case "gcs":
		return NewGCSProvider(ctx, cfg.GCS)
	case "local":
		return NewLocalProvider(cfg.Local)
	case "memory":
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Type)
	}
}
