package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ConfigLoader struct {
	logger *zap.Logger
	v      *viper.Viper
}

func NewConfigLoader(logger *zap.Logger) *ConfigLoader {
	v := viper.New()
	v.SetConfigType("yaml")
	return &ConfigLoader{
		logger: logger,
		v:      v,
	}
}

func (cl *ConfigLoader) Load(filePath string) (*Config, error) {
	cl.v.SetConfigFile(filePath)
	if err := cl.v.ReadInConfig(); err != nil {
		cl.logger.Error("Failed to read config file", zap.String("file", filePath), zap.Error(err))
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := cl.v.Unmarshal(&cfg); err != nil {
		cl.logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validate(&cfg); err != nil {
		cl.logger.Error("Config validation failed", zap.Error(err))
		return nil, err
	}

	cl.logger.Info("Config loaded successfully", zap.String("file", filePath))
	return &cfg, nil
}

func (cl *ConfigLoader) validate(cfg *Config) error {
	if cfg.Pipeline.Encoder.MaxWorkers < 0 {
		return fmt.Errorf("encoder.max_workers must be non-negative")
	}
	if cfg.Pipeline.Encoder.MaxWorkers == 0 {
		cfg.Pipeline.Encoder.MaxWorkers = 4 // Default
	}
	if cfg.Pipeline.Encoder.FFmpegPath == "" {
		cfg.Pipeline.Encoder.FFmpegPath = "ffmpeg" // Default to the one that's in PATH
	}
	if cfg.Pipeline.Encoder.FFprobePath == "" {
		cfg.Pipeline.Encoder.FFprobePath = "ffprobe"
	}
	if cfg.Pipeline.WorkDir == "" {
		cfg.Pipeline.WorkDir = "./work"
	}

	if cfg.Pipeline.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be non-negative")
	}
	if cfg.Pipeline.Retry.MaxAttempts == 0 {
		cfg.Pipeline.Retry.MaxAttempts = 3 // Default
	}
	if cfg.Pipeline.Retry.InitialIntervalSec <= 0 {
		cfg.Pipeline.Retry.InitialIntervalSec = 1.0 // Default
	}
	if cfg.Pipeline.Retry.BackoffCoefficient <= 1 {
		cfg.Pipeline.Retry.BackoffCoefficient = 2.0 // Default
	}

	if cfg.Pipeline.Uploader.PollIntervalMs < 0 {
		return fmt.Errorf("uploader.poll_interval_ms must be non-negative")
	}
	if cfg.Pipeline.Uploader.PollIntervalMs == 0 {
		cfg.Pipeline.Uploader.PollIntervalMs = 200 // Default
	}
	if cfg.Pipeline.Uploader.StableReads == 0 {
		cfg.Pipeline.Uploader.StableReads = 3 // Default
	}
	if cfg.Pipeline.Uploader.MaxWaitSec == 0 {
		cfg.Pipeline.Uploader.MaxWaitSec = 5 // Default
	}

	storage := strings.ToLower(cfg.Storage.Type)
	switch storage {
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region required")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("s3 access_key_id and secret_access_key required")
		}
	case "minio":
		if cfg.Storage.Minio.Endpoint == "" || cfg.Storage.Minio.Bucket == "" {
			return fmt.Errorf("minio endpoint and bucket required")
		}
	case "gcs":
		if cfg.Storage.GCS.Bucket == "" {
			return fmt.Errorf("gcs bucket required")
		}
	case "local":
		if cfg.Storage.Local.BasePath == "" {
			cfg.Storage.Local.BasePath = "./outputs"
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage backend: %s", storage)
	}

	for _, pc := range cfg.Plugins {
		if pc.Name == "" {
			return fmt.Errorf("plugin entries must carry a name")
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "localhost:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "assetforge-transforms"
	}
	return nil
}
