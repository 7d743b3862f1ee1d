package storage

import (
	"context"
	"io"
	"path"
)

// FileOps scopes a Provider to one variant directory. Transformers receive
// it as their only view of storage: every relative entry path resolves under
// the variant root.
type FileOps struct {
	provider Provider
	root     string
}

func NewFileOps(provider Provider, prefix, unitID, containerID, variantID string) *FileOps {
	return &FileOps{
		provider: provider,
		root:     VariantPath(prefix, unitID, containerID, variantID, ""),
	}
}

func (f *FileOps) resolve(entry string) string {
	return normalizeKey(path.Join(f.root, entry))
}

func (f *FileOps) Write(ctx context.Context, entry string, body io.Reader) error {
	return f.provider.Upload(ctx, f.resolve(entry), body)
}

func (f *FileOps) Read(ctx context.Context, entry string) (io.ReadCloser, error) {
	return f.provider.GetFileStream(ctx, f.resolve(entry))
}

func (f *FileOps) Delete(ctx context.Context, entry string) error {
	return f.provider.Delete(ctx, f.resolve(entry))
}

// Root returns the variant directory path inside the provider.
func (f *FileOps) Root() string {
	return f.root
}
