package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"AssetForge/internal/pipeline/storage"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEncoder satisfies ffmpeg.Encoder without spawning processes.
type fakeEncoder struct {
	duration float64
	probeErr error
	output   []byte
	failWhen func(args []string) error
	toFiles  func(args []string) error

	mu          sync.Mutex
	invocations [][]string
}

func (f *fakeEncoder) record(args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocations = append(f.invocations, append([]string(nil), args...))
}

func (f *fakeEncoder) Execute(ctx context.Context, args []string, consume func(io.Reader) error) error {
	f.record(args)
	if f.failWhen != nil {
		if err := f.failWhen(args); err != nil {
			return err
		}
	}
	return consume(bytes.NewReader(f.output))
}

func (f *fakeEncoder) ExecuteToFiles(ctx context.Context, args []string, onDiagnostic func(string)) error {
	f.record(args)
	if f.failWhen != nil {
		if err := f.failWhen(args); err != nil {
			return err
		}
	}
	if f.toFiles != nil {
		return f.toFiles(args)
	}
	return nil
}

func (f *fakeEncoder) Probe(ctx context.Context, input string) (float64, error) {
	return f.duration, f.probeErr
}

func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// prepareVariants runs a handshake and wires each declared variant to the
// memory provider, the way the orchestrator does.
func prepareVariants(t *testing.T, tr plugin.Transformer, provider *storage.MemoryProvider, input schema.Values) []plugin.TransformVariant {
	t.Helper()
	hs, err := tr.Handshake(context.Background(), plugin.TransformRequest{Input: input})
	require.NoError(t, err)

	variants := make([]plugin.TransformVariant, len(hs.Variants))
	for i, decl := range hs.Variants {
		id := fmt.Sprintf("variant-%d", i)
		variants[i] = plugin.TransformVariant{
			ID:                 id,
			VariantDeclaration: decl,
			Files:              storage.NewFileOps(provider, "", "u1", "a1", id),
		}
	}
	return variants
}

func TestThumbnailTimestampsAtQuarterPoints(t *testing.T) {
	enc := &fakeEncoder{duration: 12, output: []byte("frame")}
	tr := NewThumbnailTransformer(enc, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, nil)
	require.Len(t, variants, 3)

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	var seeks []string
	for _, inv := range enc.invocations {
		seeks = append(seeks, argValue(inv, "-ss"))
	}
	sort.Strings(seeks)
	assert.Equal(t, []string{"3.000", "6.000", "9.000"}, seeks)

	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("units/u1/a1/variant-%d/thumb_%d.webp", i-1, i)
		assert.Equal(t, []byte("frame"), provider.Object(key))
	}
}

func TestThumbnailVariantFailureIsIsolated(t *testing.T) {
	enc := &fakeEncoder{duration: 12, output: []byte("frame")}
	enc.failWhen = func(args []string) error {
		if argValue(args, "-ss") == "6.000" {
			return fmt.Errorf("encoder exited abnormally")
		}
		return nil
	}
	tr := NewThumbnailTransformer(enc, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, nil)

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "variant-1", failed[0].ID)
	assert.Contains(t, failed[0].Error, "encoder exited abnormally")

	assert.NotNil(t, provider.Object("units/u1/a1/variant-0/thumb_1.webp"))
	assert.Nil(t, provider.Object("units/u1/a1/variant-1/thumb_2.webp"))
	assert.NotNil(t, provider.Object("units/u1/a1/variant-2/thumb_3.webp"))
}

func TestThumbnailProbeFailureAbortsTransform(t *testing.T) {
	enc := &fakeEncoder{probeErr: fmt.Errorf("moov atom not found")}
	tr := NewThumbnailTransformer(enc, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, nil)

	_, err := tr.Transform(context.Background(), plugin.TransformArgs{
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to probe source")
}

func TestPreviewFilterChain(t *testing.T) {
	chain := previewFilterChain(10, 0, false)
	assert.Equal(t, "fps=10,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse", chain)

	chain = previewFilterChain(15, 320, true)
	assert.Equal(t, "fps=15,scale=320:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse", chain)
}

func TestPreviewStreamsGIFToStorage(t *testing.T) {
	enc := &fakeEncoder{output: []byte("gif-bytes")}
	tr := NewPreviewTransformer(enc, zap.NewNop())
	provider := storage.NewMemoryProvider()
	variants := prepareVariants(t, tr, provider, schema.Values{"fps": 15, "width": 320})

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		Input:     schema.Values{"fps": 15, "width": 320},
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	require.Len(t, enc.invocations, 1)
	assert.Contains(t, argValue(enc.invocations[0], "-vf"), "scale=320:-1")
	assert.Equal(t, []byte("gif-bytes"), provider.Object("units/u1/a1/variant-0/preview.gif"))
}

func TestTranscodeRequiresExplicitDimensions(t *testing.T) {
	enc := &fakeEncoder{}
	tr := NewTranscodeTransformer(enc, zap.NewNop())

	_, err := tr.Handshake(context.Background(), plugin.TransformRequest{Input: schema.Values{"width": 640}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `input "height" is required`)

	_, err = tr.Transform(context.Background(), plugin.TransformArgs{
		Input:    schema.Values{},
		Variants: []plugin.TransformVariant{{ID: "v"}},
	})
	require.Error(t, err)
	assert.Empty(t, enc.invocations, "no encoder invocation without dimensions")
}

func TestTranscodeRoundsOddDimensionsUp(t *testing.T) {
	enc := &fakeEncoder{output: []byte("mp4")}
	tr := NewTranscodeTransformer(enc, zap.NewNop())
	provider := storage.NewMemoryProvider()
	input := schema.Values{"width": 641, "height": 361}
	variants := prepareVariants(t, tr, provider, input)

	result, err := tr.Transform(context.Background(), plugin.TransformArgs{
		Input:     input,
		LocalPath: "/tmp/source.mp4",
		Variants:  variants,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	require.Len(t, enc.invocations, 1)
	assert.Equal(t, "scale=642:362", argValue(enc.invocations[0], "-vf"))
	assert.Equal(t, "frag_keyframe+empty_moov", argValue(enc.invocations[0], "-movflags"))
}

func TestEvenDimensions(t *testing.T) {
	w, h := evenDimensions(640, 360)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	w, h = evenDimensions(641, 361)
	assert.Equal(t, 642, w)
	assert.Equal(t, 362, h)
}

func TestEvenScale(t *testing.T) {
	_, ok := evenScale(0, false, 0, false)
	assert.False(t, ok)

	filter, ok := evenScale(1281, true, 0, false)
	require.True(t, ok)
	assert.Equal(t, "scale=1282:-2", filter)

	filter, ok = evenScale(1280, true, 721, true)
	require.True(t, ok)
	assert.Equal(t, "scale=1280:722", filter)
}

func TestPackageContributions(t *testing.T) {
	pkg := Package(&fakeEncoder{}, t.TempDir(), typesUploaderConfig(), 2, zap.NewNop())

	assert.Equal(t, "assetforge-plugin-media", pkg.Name)
	require.Contains(t, pkg.Manifest.Contributes.Transformer, "thumbnail")
	require.Contains(t, pkg.Manifest.Contributes.Transformer, "preview")
	require.Contains(t, pkg.Manifest.Contributes.Transformer, "transcode")
	require.Contains(t, pkg.Manifest.Contributes.Transformer, "hls")

	for id, contribution := range pkg.Manifest.Contributes.Transformer {
		instance := contribution.New()
		_, ok := instance.(plugin.Transformer)
		assert.True(t, ok, "contribution %s must construct a transformer", id)
	}
}
