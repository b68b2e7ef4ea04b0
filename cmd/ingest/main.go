package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/muletrace/internal/config"
	"github.com/vanshika/muletrace/internal/graph"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/repository"
)

func main() {
	batchSize := flag.Int("batch-size", 500, "transactions written per graph transaction")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ingest [flags] file.csv [file.csv ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient).WithBatchSize(*batchSize)
	parser := ingest.NewParser()

	start := time.Now()
	total := 0
	for _, path := range flag.Args() {
		n, err := loadFile(ctx, logger, parser, repo, path)
		if err != nil {
			logger.Error("ingestion failed", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("file ingested", "path", path, "transactions", n)
		total += n
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "files", flag.NArg(), "transactions", total)
}

func loadFile(ctx context.Context, logger *slog.Logger, parser *ingest.Parser, repo *repository.Repository, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	parsed, err := parser.ParseCSV(file)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(parsed.Skipped) > 0 {
		logger.Warn("skipped malformed records", "path", path, "count", len(parsed.Skipped), "first", parsed.Skipped[0].Error())
	}
	if err := repo.SaveTransactions(ctx, parsed.Records); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(parsed.Records), nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
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
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
