package media

import (
	"context"
	"fmt"
	"io"

	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"go.uber.org/zap"
)

// TranscodeTransformer produces a progressive MP4 at explicit output
// dimensions. Output dimensions are required: the transformer does not probe
// the source to derive them, and refuses to run without them. The container
// is written with fragmented-MP4 flags so the non-seekable stdout pipe still
// yields a playable file.
type TranscodeTransformer struct {
	enc    ffmpeg.Encoder
	logger *zap.Logger
}

var _ plugin.Transformer = (*TranscodeTransformer)(nil)

func NewTranscodeTransformer(enc ffmpeg.Encoder, logger *zap.Logger) *TranscodeTransformer {
	return &TranscodeTransformer{enc: enc, logger: logger}
}

func (t *TranscodeTransformer) Handshake(ctx context.Context, req plugin.TransformRequest) (plugin.HandshakeResult, error) {
	if err := requireDimensions(req.Input); err != nil {
		return plugin.HandshakeResult{}, err
	}
	return plugin.HandshakeResult{Variants: []plugin.VariantDeclaration{{
		Name:       "Transcoded Video",
		EntryPoint: "video.mp4",
		MimeType:   "video/mp4",
		Type:       plugin.VariantDerivative,
	}}}, nil
}

func (t *TranscodeTransformer) Transform(ctx context.Context, args plugin.TransformArgs) (plugin.TransformResult, error) {
	if len(args.Variants) != 1 {
		return plugin.TransformResult{}, fmt.Errorf("expected exactly one variant, got %d", len(args.Variants))
	}
	variant := args.Variants[0]

	if err := requireDimensions(args.Input); err != nil {
		return plugin.TransformResult{}, err
	}
	width, _ := numberInput(args.Input, "width")
	height, _ := numberInput(args.Input, "height")
	width, height = evenDimensions(width, height)

	cmd := ffmpeg.NewCommand().
		Option("-i", args.LocalPath).
		Option("-vf", fmt.Sprintf("scale=%d:%d", width, height)).
		Option("-c:v", "libx264").
		Option("-preset", "fast").
		Option("-c:a", "aac").
		Option("-movflags", "frag_keyframe+empty_moov").
		Option("-f", "mp4").
		Args()
	cmd = append(cmd, "pipe:1")

	err := t.enc.Execute(ctx, cmd, func(stdout io.Reader) error {
		return variant.Files.Write(ctx, variant.EntryPoint, stdout)
	})
	if err != nil {
		return plugin.TransformResult{Variants: []plugin.VariantResult{variantFailure(variant.ID, err)}}, nil
	}
	t.logger.Debug("transcode complete",
		zap.String("variant", variant.ID),
		zap.Int("width", width),
		zap.Int("height", height))
	return plugin.TransformResult{Variants: []plugin.VariantResult{{ID: variant.ID}}}, nil
}

func requireDimensions(input map[string]interface{}) error {
	if _, ok := numberInput(input, "width"); !ok {
		return errMissingInput("width")
	}
	if _, ok := numberInput(input, "height"); !ok {
		return errMissingInput("height")
	}
	return nil
}

// evenDimensions rounds both dimensions up to the nearest even number.
// H.264 4:2:0 output rejects odd dimensions outright.
func evenDimensions(width, height int) (int, int) {
	if width%2 != 0 {
		width++
	}
	if height%2 != 0 {
		height++
	}
	return width, height
}
