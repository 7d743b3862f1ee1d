package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	types "AssetForge/pkg"
	"AssetForge/internal/pipeline/segment"
	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const hlsPlaylistName = "index.m3u8"

// HLSTransformer packages the source into a segmented HLS rendition. Unlike
// the other transformers it cannot stream a single stdout pipe: the encoder
// writes a playlist plus many segment files, so it runs in file-output mode
// against a scratch directory while a segment uploader ships each finished
// segment and finally the rewritten playlist.
type HLSTransformer struct {
	enc           ffmpeg.Encoder
	workDir       string
	uploaderCfg   types.UploaderConfig
	uploadWorkers int
	logger        *zap.Logger
}

var _ plugin.Transformer = (*HLSTransformer)(nil)

func NewHLSTransformer(enc ffmpeg.Encoder, workDir string, uploaderCfg types.UploaderConfig, uploadWorkers int, logger *zap.Logger) *HLSTransformer {
	return &HLSTransformer{enc: enc, workDir: workDir, uploaderCfg: uploaderCfg, uploadWorkers: uploadWorkers, logger: logger}
}

func (h *HLSTransformer) Handshake(ctx context.Context, req plugin.TransformRequest) (plugin.HandshakeResult, error) {
	return plugin.HandshakeResult{Variants: []plugin.VariantDeclaration{{
		Name:       "HLS Rendition",
		EntryPoint: hlsPlaylistName,
		MimeType:   "application/vnd.apple.mpegurl",
		Type:       plugin.VariantDerivative,
	}}}, nil
}

func (h *HLSTransformer) Transform(ctx context.Context, args plugin.TransformArgs) (plugin.TransformResult, error) {
	if len(args.Variants) != 1 {
		return plugin.TransformResult{}, fmt.Errorf("expected exactly one variant, got %d", len(args.Variants))
	}
	variant := args.Variants[0]

	outDir := filepath.Join(h.workDir, "hls-"+uuid.NewString())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return plugin.TransformResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	uploader := segment.NewUploader(outDir, variant.Files, segment.NewStabilityMonitor(h.uploaderCfg), h.uploadWorkers, h.logger)
	if err := uploader.Start(ctx); err != nil {
		os.RemoveAll(outDir)
		return plugin.TransformResult{}, err
	}

	if err := h.encode(ctx, args, outDir); err != nil {
		// Abort also removes the scratch directory.
		uploader.Abort()
		return plugin.TransformResult{Variants: []plugin.VariantResult{variantFailure(variant.ID, err)}}, nil
	}

	if err := uploader.Finish(ctx, hlsPlaylistName); err != nil {
		return plugin.TransformResult{Variants: []plugin.VariantResult{variantFailure(variant.ID, err)}}, nil
	}
	return plugin.TransformResult{Variants: []plugin.VariantResult{{ID: variant.ID}}}, nil
}

func (h *HLSTransformer) encode(ctx context.Context, args plugin.TransformArgs, outDir string) error {
	cmd := ffmpeg.NewCommand().
		Option("-i", args.LocalPath)

	width, hasWidth := numberInput(args.Input, "width")
	height, hasHeight := numberInput(args.Input, "height")
	if filter, ok := evenScale(width, hasWidth, height, hasHeight); ok {
		cmd = cmd.Option("-vf", filter)
	}

	cmd = cmd.
		Option("-c:v", "libx264").
		Option("-preset", "fast").
		Option("-c:a", "aac").
		Option("-f", "hls").
		Option("-hls_time", "6").
		Option("-hls_playlist_type", "vod").
		Option("-hls_segment_filename", filepath.Join(outDir, "seg%d.ts"))

	fullArgs := append(cmd.Args(), filepath.Join(outDir, hlsPlaylistName))
	return h.enc.ExecuteToFiles(ctx, fullArgs, func(line string) {
		h.logger.Debug("encoder", zap.String("line", line))
	})
}

// evenScale builds a scale filter whose explicit dimensions are rounded up
// to even numbers. An omitted dimension becomes -2, which tells the encoder
// to keep the aspect ratio while staying divisible by two.
func evenScale(width int, hasWidth bool, height int, hasHeight bool) (string, bool) {
	if !hasWidth && !hasHeight {
		return "", false
	}
	w, ht := -2, -2
	if hasWidth {
		if width%2 != 0 {
			width++
		}
		w = width
	}
	if hasHeight {
		if height%2 != 0 {
			height++
		}
		ht = height
	}
	return fmt.Sprintf("scale=%d:%d", w, ht), true
}
