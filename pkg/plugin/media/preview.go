package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"go.uber.org/zap"
)

const defaultPreviewFPS = 10

// PreviewTransformer renders a looping GIF. The filter chain fixes the frame
// rate, optionally scales, then runs two-pass palette generation so the GIF
// does not fall back to the default 256-color web palette.
type PreviewTransformer struct {
	enc    ffmpeg.Encoder
	logger *zap.Logger
}

var _ plugin.Transformer = (*PreviewTransformer)(nil)

func NewPreviewTransformer(enc ffmpeg.Encoder, logger *zap.Logger) *PreviewTransformer {
	return &PreviewTransformer{enc: enc, logger: logger}
}

func (p *PreviewTransformer) Handshake(ctx context.Context, req plugin.TransformRequest) (plugin.HandshakeResult, error) {
	return plugin.HandshakeResult{Variants: []plugin.VariantDeclaration{{
		Name:       "Animated Preview",
		EntryPoint: "preview.gif",
		MimeType:   "image/gif",
		Type:       plugin.VariantDerivative,
	}}}, nil
}

func (p *PreviewTransformer) Transform(ctx context.Context, args plugin.TransformArgs) (plugin.TransformResult, error) {
	if len(args.Variants) != 1 {
		return plugin.TransformResult{}, fmt.Errorf("expected exactly one variant, got %d", len(args.Variants))
	}
	variant := args.Variants[0]

	fps := defaultPreviewFPS
	if v, ok := numberInput(args.Input, "fps"); ok && v > 0 {
		fps = v
	}
	width, hasWidth := numberInput(args.Input, "width")

	cmd := ffmpeg.NewCommand().
		Option("-i", args.LocalPath).
		Option("-vf", previewFilterChain(fps, width, hasWidth)).
		Option("-f", "gif").
		Args()
	cmd = append(cmd, "pipe:1")

	err := p.enc.Execute(ctx, cmd, func(stdout io.Reader) error {
		return variant.Files.Write(ctx, variant.EntryPoint, stdout)
	})
	if err != nil {
		return plugin.TransformResult{Variants: []plugin.VariantResult{variantFailure(variant.ID, err)}}, nil
	}
	return plugin.TransformResult{Variants: []plugin.VariantResult{{ID: variant.ID}}}, nil
}

func previewFilterChain(fps, width int, scale bool) string {
	stages := []string{fmt.Sprintf("fps=%d", fps)}
	if scale && width > 0 {
		stages = append(stages, fmt.Sprintf("scale=%d:-1:flags=lanczos", width))
	}
	stages = append(stages, "split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse")
	return strings.Join(stages, ",")
}
