// Package media bundles the built-in transformer contributions: still
// thumbnails, animated previews, a progressive transcoder and HLS packaging.
// All of them shell out to the configured encoder binary.
package media

import (
	"fmt"

	types "AssetForge/pkg"
	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/schema"
	"go.uber.org/zap"
)

const videoMimeTypes = "video/*"

// Package assembles the builtin media plugin. The encoder and uploader
// tuning are captured here so contribution constructors stay zero-argument.
func Package(enc ffmpeg.Encoder, workDir string, uploaderCfg types.UploaderConfig, uploadWorkers int, logger *zap.Logger) plugin.Package {
	return plugin.Package{
		Name: plugin.PackagePrefix + "media",
		Manifest: plugin.Manifest{
			Format:      plugin.FormatContributions,
			DisplayName: "Media Derivatives",
			Description: "Thumbnails, animated previews, transcodes and HLS renditions for video assets.",
			Contributes: &plugin.Contributions{
				Transformer: map[string]*plugin.Contribution{
					"thumbnail": {
						DisplayName: "Thumbnail Generator",
						Description: "Three still frames sampled across the source.",
						MimeTypes:   []string{videoMimeTypes},
						New:         func() interface{} { return NewThumbnailTransformer(enc, logger) },
					},
					"preview": {
						DisplayName: "Animated Preview",
						Description: "Short looping GIF preview.",
						MimeTypes:   []string{videoMimeTypes},
						InputSchema: schema.Definition{
							"fps":   {Label: "Frames per second", Type: schema.TypeNumber},
							"width": {Label: "Output width", Type: schema.TypeNumber},
						},
						New: func() interface{} { return NewPreviewTransformer(enc, logger) },
					},
					"transcode": {
						DisplayName: "Video Transcoder",
						Description: "Progressive MP4 at explicit output dimensions.",
						MimeTypes:   []string{videoMimeTypes},
						InputSchema: schema.Definition{
							"width":  {Label: "Output width", Type: schema.TypeNumber, Required: true},
							"height": {Label: "Output height", Type: schema.TypeNumber, Required: true},
						},
						New: func() interface{} { return NewTranscodeTransformer(enc, logger) },
					},
					"hls": {
						DisplayName: "HLS Packager",
						Description: "Segmented HLS rendition with incremental segment upload.",
						MimeTypes:   []string{videoMimeTypes},
						InputSchema: schema.Definition{
							"width":  {Label: "Target width", Type: schema.TypeNumber},
							"height": {Label: "Target height", Type: schema.TypeNumber},
						},
						New: func() interface{} { return NewHLSTransformer(enc, workDir, uploaderCfg, uploadWorkers, logger) },
					},
				},
			},
		},
	}
}

// numberInput reads a numeric input value. Decoded JSON numbers arrive as
// float64, hand-built test values as int.
func numberInput(values schema.Values, key string) (int, bool) {
	raw, ok := values[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func variantFailure(id string, err error) plugin.VariantResult {
	return plugin.VariantResult{ID: id, Error: err.Error()}
}

func errMissingInput(key string) error {
	return fmt.Errorf("input %q is required", key)
}
