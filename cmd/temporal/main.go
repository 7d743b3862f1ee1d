package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"AssetForge/internal/config"
	"AssetForge/internal/pipeline"
	"AssetForge/internal/pipeline/storage"
	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/schema"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	configLoader := config.NewConfigLoader(logger)
	cfg, err := configLoader.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer temporalClient.Close()

	ctx := context.Background()

	provider, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create storage", zap.Error(err))
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

	temporalWorker := pipeline.NewTemporalWorker(temporalClient, orchestrator, cfg, logger)
	if err := temporalWorker.Start(); err != nil {
		logger.Fatal("Failed to start Temporal worker", zap.Error(err))
	}
	defer temporalWorker.Stop()

	logger.Info("Temporal worker started",
		zap.String("task_queue", cfg.Temporal.TaskQueue),
		zap.String("host_port", cfg.Temporal.HostPort))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down Temporal worker")
}
