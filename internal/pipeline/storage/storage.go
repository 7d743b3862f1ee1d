package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// PathStats describes one stored object or directory.
type PathStats struct {
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Provider is a byte-addressable hierarchical store holding both source
// assets and produced variants. Every implementation must treat "not found"
// as a normal false/empty result on Exists, and "directory" deletion as
// prefix deletion on object stores.
type Provider interface {
	Upload(ctx context.Context, path string, body io.Reader) error
	GetFileStream(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	DeleteDirectory(ctx context.Context, path string) error
	GetPathStats(ctx context.Context, path string) (*PathStats, error)
}

// normalizeKey turns a logical path into an object key: leading slashes are
// stripped and the full joined path is the key.
func normalizeKey(p string) string {
	return strings.TrimLeft(path.Clean("/"+p), "/")
}

// VariantPath composes the logical path for one variant file:
// {prefix}/units/{unitID}/{containerID}/{variantID}/{entry}.
func VariantPath(prefix, unitID, containerID, variantID, entry string) string {
	parts := []string{"units", unitID, containerID, variantID, entry}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return normalizeKey(path.Join(parts...))
}
