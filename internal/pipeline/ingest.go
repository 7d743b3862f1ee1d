package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	types "AssetForge/pkg"
	"AssetForge/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ingestor materializes an asset source as a local work file. Encoders need
// a seekable path, so even streamed sources land on disk first.
type Ingestor struct {
	workDir string
	retry   types.RetryConfig
	logger  *zap.Logger
}

func NewIngestor(workDir string, retryCfg types.RetryConfig, logger *zap.Logger) *Ingestor {
	return &Ingestor{workDir: workDir, retry: retryCfg, logger: logger}
}

// Fetch resolves the source and copies it to a fresh file under the work
// directory. The caller owns the returned path and removes it when done.
func (i *Ingestor) Fetch(ctx context.Context, source plugin.AssetSource) (string, error) {
	if !source.Available() {
		return "", fmt.Errorf("asset source carries no url, payload or data uri")
	}
	if err := os.MkdirAll(i.workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}

	localPath := filepath.Join(i.workDir, "ingest-"+uuid.NewString())
	err := Retry(ctx, i.logger, i.retry, "ingest source", func() error {
		stream, err := source.Open(ctx)
		if err != nil {
			return err
		}
		defer stream.Close()

		outFile, err := os.Create(localPath)
		if err != nil {
			return err
		}
		defer outFile.Close()

		_, err = io.Copy(outFile, stream)
		return err
	})
	if err != nil {
		os.Remove(localPath)
		i.logger.Error("Ingest failed after retries", zap.Error(err))
		return "", fmt.Errorf("failed to ingest source: %w", err)
	}

	i.logger.Info("Ingest completed", zap.String("local_path", localPath))
	return localPath, nil
}
