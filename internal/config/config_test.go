package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: local
plugins:
  - name: assetforge-plugin-media
    enabled: true
`)

	cfg, err := NewConfigLoader(zap.NewNop()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ffmpeg", cfg.Pipeline.Encoder.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.Pipeline.Encoder.FFprobePath)
	assert.Equal(t, int32(4), cfg.Pipeline.Encoder.MaxWorkers)
	assert.Equal(t, int32(3), cfg.Pipeline.Retry.MaxAttempts)
	assert.Equal(t, int32(200), cfg.Pipeline.Uploader.PollIntervalMs)
	assert.Equal(t, int32(3), cfg.Pipeline.Uploader.StableReads)
	assert.Equal(t, int32(5), cfg.Pipeline.Uploader.MaxWaitSec)
	assert.Equal(t, "./outputs", cfg.Storage.Local.BasePath)
	assert.Equal(t, "assetforge-transforms", cfg.Temporal.TaskQueue)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: tape
`)

	_, err := NewConfigLoader(zap.NewNop()).Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storage backend")
}

func TestLoadRequiresS3Credentials(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: s3
  s3:
    bucket: media
    region: us-east-1
`)

	_, err := NewConfigLoader(zap.NewNop()).Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_key_id")
}

func TestLoadRejectsNamelessPlugin(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: local
plugins:
  - enabled: true
`)

	_, err := NewConfigLoader(zap.NewNop()).Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must carry a name")
}

func TestLoadFullStorageSections(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  encoder:
    ffmpeg_path: /usr/local/bin/ffmpeg
  path_prefix: media
storage:
  type: minio
  minio:
    endpoint: localhost:9000
    bucket: assets
    access_key: minio
    secret_key: minio123
secrets:
  encryption_key: c2VjcmV0LWtleS1zZWNyZXQta2V5LXNlY3JldC0hIQ==
`)

	cfg, err := NewConfigLoader(zap.NewNop()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.Pipeline.Encoder.FFmpegPath)
	assert.Equal(t, "media", cfg.Pipeline.PathPrefix)
	assert.Equal(t, "localhost:9000", cfg.Storage.Minio.Endpoint)
	assert.NotEmpty(t, cfg.Secrets.EncryptionKey)
}
