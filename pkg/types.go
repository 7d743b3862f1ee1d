package types

type EncoderConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path" json:"ffprobe_path"`
	MaxWorkers  int32  `mapstructure:"max_workers" json:"max_workers"`
}

type PipelineConfig struct {
	Encoder    EncoderConfig  `mapstructure:"encoder" json:"encoder"`
	WorkDir    string         `mapstructure:"work_dir" json:"work_dir"`
	PathPrefix string         `mapstructure:"path_prefix" json:"path_prefix"`
	Retry      RetryConfig    `mapstructure:"retry" json:"retry"`
	Uploader   UploaderConfig `mapstructure:"uploader" json:"uploader"`
}

type RetryConfig struct {
	MaxAttempts        int32   `mapstructure:"max_attempts" json:"max_attempts"`
	InitialIntervalSec float64 `mapstructure:"initial_interval_sec" json:"initial_interval_sec"`
	BackoffCoefficient float64 `mapstructure:"backoff_coefficient" json:"backoff_coefficient"`
}

// UploaderConfig tunes the segment uploader's write-stability detection.
// The defaults are heuristics, not hard invariants; slow network filesystems
// may need a longer poll interval or max wait.
type UploaderConfig struct {
	PollIntervalMs int32 `mapstructure:"poll_interval_ms" json:"poll_interval_ms"`
	StableReads    int32 `mapstructure:"stable_reads" json:"stable_reads"`
	MaxWaitSec     int32 `mapstructure:"max_wait_sec" json:"max_wait_sec"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type" json:"type"`
	Local LocalConfig `mapstructure:"local" json:"local"`
	S3    S3Config    `mapstructure:"s3" json:"s3"`
	Minio MinioConfig `mapstructure:"minio" json:"minio"`
	GCS   GCSConfig   `mapstructure:"gcs" json:"gcs"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket" json:"bucket"`
	Region          string `mapstructure:"region" json:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" json:"use_ssl"`
}

type GCSConfig struct {
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	ProjectID string `mapstructure:"project_id" json:"project_id"`
}

// PluginConfig declares one installable plugin package. Discovery is driven
// by this list rather than filesystem scanning: only declared packages are
// loaded.
type PluginConfig struct {
	Name    string                 `mapstructure:"name" json:"name"`
	Enabled bool                   `mapstructure:"enabled" json:"enabled"`
	Config  map[string]interface{} `mapstructure:"config" json:"config"`
}

type SecretsConfig struct {
	// EncryptionKey is the base64-encoded 32-byte AES key used for
	// secret-typed schema fields.
	EncryptionKey string `mapstructure:"encryption_key" json:"encryption_key"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level" json:"level"`
	Output   string `mapstructure:"output" json:"output"`
	FilePath string `mapstructure:"file_path" json:"file_path"`
}
