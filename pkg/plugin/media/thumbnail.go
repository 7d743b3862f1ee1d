package media

import (
	"context"
	"fmt"
	"io"
	"sync"

	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"go.uber.org/zap"
)

const thumbnailCount = 3

// ThumbnailTransformer samples three still frames spread across the source:
// one each at 25%, 50% and 75% of the probed duration. The three encodes run
// concurrently and each frame is piped straight from encoder stdout into the
// variant's storage handle, never touching the local disk.
type ThumbnailTransformer struct {
	enc    ffmpeg.Encoder
	logger *zap.Logger
}

var _ plugin.Transformer = (*ThumbnailTransformer)(nil)

func NewThumbnailTransformer(enc ffmpeg.Encoder, logger *zap.Logger) *ThumbnailTransformer {
	return &ThumbnailTransformer{enc: enc, logger: logger}
}

func (t *ThumbnailTransformer) Handshake(ctx context.Context, req plugin.TransformRequest) (plugin.HandshakeResult, error) {
	variants := make([]plugin.VariantDeclaration, thumbnailCount)
	for i := range variants {
		variants[i] = plugin.VariantDeclaration{
			Name:       fmt.Sprintf("Thumbnail %d", i+1),
			EntryPoint: fmt.Sprintf("thumb_%d.webp", i+1),
			MimeType:   "image/webp",
			Type:       plugin.VariantThumbnail,
		}
	}
	return plugin.HandshakeResult{Variants: variants}, nil
}

func (t *ThumbnailTransformer) Transform(ctx context.Context, args plugin.TransformArgs) (plugin.TransformResult, error) {
	duration, err := t.enc.Probe(ctx, args.LocalPath)
	if err != nil {
		return plugin.TransformResult{}, fmt.Errorf("failed to probe source: %w", err)
	}

	results := make([]plugin.VariantResult, len(args.Variants))
	var wg sync.WaitGroup
	for i, variant := range args.Variants {
		timestamp := duration * float64(i+1) / float64(len(args.Variants)+1)
		wg.Add(1)
		go func(i int, variant plugin.TransformVariant, timestamp float64) {
			defer wg.Done()
			results[i] = t.extractFrame(ctx, args.LocalPath, variant, timestamp)
		}(i, variant, timestamp)
	}
	wg.Wait()

	return plugin.TransformResult{Variants: results}, nil
}

func (t *ThumbnailTransformer) extractFrame(ctx context.Context, input string, variant plugin.TransformVariant, timestamp float64) plugin.VariantResult {
	cmd := ffmpeg.NewCommand().
		Option("-ss", fmt.Sprintf("%.3f", timestamp)).
		Option("-i", input).
		Option("-frames:v", "1").
		Option("-f", "webp").
		Args()
	cmd = append(cmd, "pipe:1")

	err := t.enc.Execute(ctx, cmd, func(stdout io.Reader) error {
		return variant.Files.Write(ctx, variant.EntryPoint, stdout)
	})
	if err != nil {
		return variantFailure(variant.ID, err)
	}
	t.logger.Debug("thumbnail extracted",
		zap.String("variant", variant.ID),
		zap.Float64("timestamp", timestamp))
	return plugin.VariantResult{ID: variant.ID}
}
