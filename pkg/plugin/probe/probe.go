// Package probe registers the builtin classifier: container metadata
// extraction through the probe binary.
package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Classifier reports basic media facts about an asset: duration and the
// declared mime type. It downloads the source to a scratch file because the
// probe binary needs a seekable input.
type Classifier struct {
	enc     ffmpeg.Encoder
	workDir string
	logger  *zap.Logger
}

var _ plugin.Classifier = (*Classifier)(nil)

func NewClassifier(enc ffmpeg.Encoder, workDir string, logger *zap.Logger) *Classifier {
	return &Classifier{enc: enc, workDir: workDir, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, req plugin.TransformRequest) (map[string]interface{}, error) {
	source, err := req.Source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	localPath := filepath.Join(c.workDir, "probe-"+uuid.NewString())
	f, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer os.Remove(localPath)

	if _, err := f.ReadFrom(source); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to copy source: %w", err)
	}
	f.Close()

	duration, err := c.enc.Probe(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe source: %w", err)
	}

	return map[string]interface{}{
		"duration_sec": duration,
		"mime_type":    req.Source.MimeType,
	}, nil
}

// Package assembles the builtin probe plugin.
func Package(enc ffmpeg.Encoder, workDir string, logger *zap.Logger) plugin.Package {
	return plugin.Package{
		Name: plugin.PackagePrefix + "probe",
		Manifest: plugin.Manifest{
			Format:      plugin.FormatContributions,
			DisplayName: "Media Probe",
			Description: "Duration and container metadata for media assets.",
			Contributes: &plugin.Contributions{
				Classifier: map[string]*plugin.Contribution{
					"metadata": {
						DisplayName: "Media Metadata",
						MimeTypes:   []string{"video/*", "audio/*"},
						New:         func() interface{} { return NewClassifier(enc, workDir, logger) },
					},
				},
			},
		},
	}
}
