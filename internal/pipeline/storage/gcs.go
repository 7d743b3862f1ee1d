package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	types "AssetForge/pkg"
	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSProvider stores objects in a Google Cloud Storage bucket using ambient
// application-default credentials.
type GCSProvider struct {
	client *gstorage.Client
	bucket string
}

var _ Provider = (*GCSProvider)(nil)

func NewGCSProvider(ctx context.Context, cfg types.GCSConfig) (*GCSProvider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is empty")
	}
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSProvider{client: client, bucket: cfg.Bucket}, nil
}

func (g *GCSProvider) object(p string) *gstorage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(normalizeKey(p))
}

func (g *GCSProvider) Upload(ctx context.Context, p string, body io.Reader) error {
	w := g.object(p).NewWriter(ctx)
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", p, err)
	}
	return nil
}

func (g *GCSProvider) GetFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	r, err := g.object(p).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", p, err)
	}
	return r, nil
}

func (g *GCSProvider) Exists(ctx context.Context, p string) (bool, error) {
	_, err := g.object(p).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return true, nil
}

func (g *GCSProvider) Delete(ctx context.Context, p string) error {
	if err := g.object(p).Delete(ctx); err != nil && !errors.Is(err, gstorage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

func (g *GCSProvider) DeleteDirectory(ctx context.Context, p string) error {
	prefix := normalizeKey(p) + "/"
	it := g.client.Bucket(g.bucket).Objects(ctx, &gstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		if err := g.client.Bucket(g.bucket).Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete %s: %w", attrs.Name, err)
		}
	}
}

func (g *GCSProvider) GetPathStats(ctx context.Context, p string) (*PathStats, error) {
	attrs, err := g.object(p).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return &PathStats{Size: attrs.Size, ModTime: attrs.Updated}, nil
}
