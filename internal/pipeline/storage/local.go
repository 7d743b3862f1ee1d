package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	types "AssetForge/pkg"
)

// LocalProvider stores objects as files under a root directory.
type LocalProvider struct {
	rootPath string
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(cfg types.LocalConfig) (*LocalProvider, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required for local storage")
	}
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root path: %w", err)
	}
	return &LocalProvider{rootPath: cfg.BasePath}, nil
}

func (l *LocalProvider) fullPath(p string) string {
	return filepath.Join(l.rootPath, filepath.FromSlash(normalizeKey(p)))
}

func (l *LocalProvider) Upload(ctx context.Context, p string, body io.Reader) error {
	fullPath := l.fullPath(p)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (l *LocalProvider) GetFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(l.fullPath(p))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (l *LocalProvider) Exists(ctx context.Context, p string) (bool, error) {
	_, err := os.Stat(l.fullPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LocalProvider) Delete(ctx context.Context, p string) error {
	err := os.Remove(l.fullPath(p))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalProvider) DeleteDirectory(ctx context.Context, p string) error {
	if err := os.RemoveAll(l.fullPath(p)); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

func (l *LocalProvider) GetPathStats(ctx context.Context, p string) (*PathStats, error) {
	info, err := os.Stat(l.fullPath(p))
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	return &PathStats{Size: info.Size(), IsDir: info.IsDir(), ModTime: info.ModTime()}, nil
}
