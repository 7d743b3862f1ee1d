package main

import (
	"context"
	"log"
	"os"

	"AssetForge/internal/config"
	"AssetForge/internal/pipeline"
	"AssetForge/internal/pipeline/storage"
	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			log.Printf("error syncing logger: %v", err)
		}
	}(logger)

	configLoader := config.NewConfigLoader(logger)
	cfg, err := configLoader.Load("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	provider, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to init storage", zap.Error(err))
	}

	encoder := ffmpeg.NewFFmpeg(cfg.Pipeline.Encoder.FFmpegPath, cfg.Pipeline.Encoder.FFprobePath, logger)

	catalog := pipeline.NewPluginCatalog(encoder, cfg.Pipeline.WorkDir, cfg.Pipeline.Uploader, int(cfg.Pipeline.Encoder.MaxWorkers), logger)
	registry := plugin.NewRegistry(logger)
	registry.DiscoverAll(catalog.Resolve(cfg.Plugins))

	engine, err := schema.NewEngine(cfg.Secrets.EncryptionKey, logger)
	if err != nil {
		logger.Fatal("Failed to init schema engine", zap.Error(err))
	}

	ingestor := pipeline.NewIngestor(cfg.Pipeline.WorkDir, cfg.Pipeline.Retry, logger)
	orchestrator := pipeline.NewOrchestrator(registry, provider, ingestor, engine, cfg.Pipeline.PathPrefix, logger)

	if len(os.Args) < 3 {
		logger.Info("Usage: assetforge <plugin-id> <source-url> [unit-id] [container-id]")
		for _, entry := range registry.ListPlugins(plugin.CategoryTransformer) {
			logger.Info("Available transformer",
				zap.String("id", entry.ID()),
				zap.String("display_name", entry.DisplayName))
		}
		return
	}

	job := pipeline.TransformJob{
		ID:          uuid.NewString(),
		UnitID:      argOr(3, "default"),
		ContainerID: argOr(4, uuid.NewString()),
		PluginID:    os.Args[1],
		Request: plugin.TransformRequest{
			Source: plugin.AssetSource{URL: os.Args[2], MimeType: "video/mp4"},
		},
	}

	outcome, err := orchestrator.Run(ctx, job)
	if err != nil {
		logger.Fatal("Transform failed", zap.Error(err))
	}
	logger.Info("Transform finished",
		zap.String("job", outcome.JobID),
		zap.String("state", string(outcome.State)))
}

func argOr(index int, fallback string) string {
	if len(os.Args) > index {
		return os.Args[index]
	}
	return fallback
}
