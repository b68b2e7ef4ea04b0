package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vanshika/muletrace/internal/config"
	"github.com/vanshika/muletrace/internal/detection"
	"github.com/vanshika/muletrace/internal/graph"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/metrics"
	"github.com/vanshika/muletrace/internal/repository"
	"github.com/vanshika/muletrace/internal/server"
	"github.com/vanshika/muletrace/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	var recorder *metrics.Recorder
	if cfg.HTTP.MetricsEnabled {
		recorder = metrics.New()
	}

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	opts := []service.Option{
		service.WithMetrics(recorder),
		service.WithTimeout(cfg.Engine.AnalysisTimeout),
	}
	if graphClient != nil {
		opts = append(opts, service.WithSource(repository.New(graphClient)))
	}

	engine := detection.NewEngine(engineOptions(cfg.Engine))
	analysisService := service.NewAnalysisService(logger, engine, ingest.NewParser(), opts...)
	apiHandlers := server.NewAPIHandlers(logger, analysisService, cfg.Upload.MaxBytes)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: graphClient},
		API:              apiHandlers,
		Metrics:          recorder,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
		AnalyzeRate:      cfg.RateLimit.RequestsPerSecond,
		AnalyzeBurst:     cfg.RateLimit.Burst,
	})

	srv := server.New(logger, cfg.HTTP, router)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

func engineOptions(cfg config.EngineConfig) detection.Options {
	return detection.Options{
		FanThreshold:      cfg.FanThreshold,
		VelocityThreshold: cfg.VelocityThreshold,
		MaxPaths:          cfg.MaxCyclePaths,
		MaxDepth:          cfg.MaxCycleDepth,
		CanonicalCycles:   cfg.CanonicalCycles,
	}
}

// buildGraphClient returns nil when no graph URI is configured; uploads still work.
func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		logger.Info("graph source disabled", "reason", graph.ErrMissingURI.Error())
		return nil, nil
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("graph source enabled", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(csv, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
