package config

import (
	types "AssetForge/pkg"
)

type Config struct {
	Pipeline types.PipelineConfig `mapstructure:"pipeline" json:"pipeline"`
	Storage  types.StorageConfig  `mapstructure:"storage" json:"storage"`
	Plugins  []types.PluginConfig `mapstructure:"plugins" json:"plugins"`
	Secrets  types.SecretsConfig  `mapstructure:"secrets" json:"secrets"`
	Logging  types.LoggingConfig  `mapstructure:"logging" json:"logging"`
	Temporal TemporalConfig       `mapstructure:"temporal" json:"temporal"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port" json:"host_port"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
	TaskQueue string `mapstructure:"task_queue" json:"task_queue"`
}
