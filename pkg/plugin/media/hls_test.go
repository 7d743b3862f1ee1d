package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	types "AssetForge/pkg"
	"AssetForge/internal/pipeline/storage"
	"AssetForge/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func typesUploaderConfig() types.UploaderConfig {
	return types.UploaderConfig{PollIntervalMs: 1, StableReads: 1, MaxWaitSec: 5}
}

func TestHLSTransformUploadsSegmentsThenPlaylist(t *testing.T) {
	enc := &fakeEncoder{}
	enc.toFiles = func(args []string) error {
		// The encoder writes segments plus the playlist into the output
		// directory named by the trailing positional argument.
		playlistPath := args[len(args)-1]
		dir := filepath.Dir(playlistPath)
		for i := 0; i < 4; i++ {
			if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("seg%d.ts", i)), []byte("segment"), 0644); err != nil {
				return err
			}
		}
		playlist := "#EXTM3U\n#EXTINF:6.0,\nseg0.ts\nseg1.ts\nseg2.ts\nseg3.ts\n#EXT-X-ENDLIST\n"
		return os.WriteFile(playlistPath, []byte(playlist), 0644)
	}

	tr := NewHLSTransformer(enc, t.TempDir(), typesUploaderConfig(), 2, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, nil)
	require.Len(t, variants, 1)

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	uploads := provider.Uploads()
	require.Len(t, uploads, 5)
	assert.Equal(t, "units/u1/a1/variant-0/index.m3u8", uploads[len(uploads)-1], "playlist is uploaded last")
	for _, key := range uploads[:4] {
		assert.Contains(t, key, "/segments/seg")
	}

	playlist := string(provider.Object("units/u1/a1/variant-0/index.m3u8"))
	assert.Contains(t, playlist, "segments/seg0.ts")
	assert.Contains(t, playlist, "segments/seg3.ts")
}

func TestHLSEncoderFailureReportsVariantError(t *testing.T) {
	enc := &fakeEncoder{failWhen: func([]string) error {
		return fmt.Errorf("Unknown encoder 'libx265'")
	}}
	workDir := t.TempDir()
	tr := NewHLSTransformer(enc, workDir, typesUploaderConfig(), 2, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, nil)

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "Unknown encoder")
	assert.Empty(t, provider.Uploads(), "nothing reaches storage when the encoder fails")

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory is cleaned up")
}

func TestHLSScaleFlagFromInput(t *testing.T) {
	enc := &fakeEncoder{}
	enc.toFiles = func(args []string) error {
		playlistPath := args[len(args)-1]
		return os.WriteFile(playlistPath, []byte("#EXTM3U\n"), 0644)
	}
	tr := NewHLSTransformer(enc, t.TempDir(), typesUploaderConfig(), 2, zap.NewNop())
	provider := storage.NewMemoryProvider()
	input := map[string]interface{}{"width": 1279}
	variants := prepareVariants(t, tr, provider, input)

	_, err := tr.Transform(context.Background(), plugin.TransformArgs{
		Input:     input,
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)

	require.Len(t, enc.invocations, 1)
	args := enc.invocations[0]
	assert.Equal(t, "scale=1280:-2", argValue(args, "-vf"))
	assert.Equal(t, "hls", argValue(args, "-f"))
	assert.True(t, strings.HasSuffix(argValue(args, "-hls_segment_filename"), "seg%d.ts"))
}
