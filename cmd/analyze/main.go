package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/vanshika/muletrace/internal/config"
	"github.com/vanshika/muletrace/internal/detection"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/graph"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/repository"
	"github.com/vanshika/muletrace/internal/service"
)

const (
	sourceFiles = "files"
	sourceGraph = "graph"
)

func main() {
	var (
		source    = flag.String("source", sourceFiles, "where transactions come from: files|graph")
		workers   = flag.Int("workers", 4, "number of files analysed concurrently")
		outputDir = flag.String("output-dir", "", "directory for <name>.report.json files; stdout when empty")
		canonical = flag.Bool("canonical", false, "count each cycle once regardless of rotation (overrides CANONICAL_CYCLES)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file.csv ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *canonical {
		cfg.Engine.CanonicalCycles = true
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.Logging).With("component", "analyze")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := detection.NewEngine(detection.Options{
		FanThreshold:      cfg.Engine.FanThreshold,
		VelocityThreshold: cfg.Engine.VelocityThreshold,
		MaxPaths:          cfg.Engine.MaxCyclePaths,
		MaxDepth:          cfg.Engine.MaxCycleDepth,
		CanonicalCycles:   cfg.Engine.CanonicalCycles,
	})
	opts := []service.Option{service.WithTimeout(cfg.Engine.AnalysisTimeout)}

	switch *source {
	case sourceGraph:
		client, err := buildGraphClient(ctx, logger, cfg)
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()

		svc := service.NewAnalysisService(logger, engine, ingest.NewParser(), append(opts, service.WithSource(repository.New(client)))...)
		res, err := svc.AnalyzeStored(ctx)
		if err != nil {
			logger.Error("stored analysis failed", "error", err)
			os.Exit(1)
		}
		if err := emit(*outputDir, "graph", res); err != nil {
			logger.Error("failed to write report", "error", err)
			os.Exit(1)
		}

	case sourceFiles:
		paths := flag.Args()
		if len(paths) == 0 {
			flag.Usage()
			os.Exit(2)
		}

		svc := service.NewAnalysisService(logger, engine, ingest.NewParser(), opts...)
		results, err := service.NewBatchAnalyzer(svc, *workers).AnalyzeFiles(ctx, paths)
		if err != nil && service.IsCancellation(err) {
			logger.Warn("analysis cancelled", "error", err)
			os.Exit(130)
		}
		for _, fr := range results {
			if werr := emit(*outputDir, reportName(fr.Path), fr.Result); werr != nil {
				logger.Error("failed to write report", "path", fr.Path, "error", werr)
				os.Exit(1)
			}
		}
		var taskErr *service.TaskError
		if errors.As(err, &taskErr) {
			for _, e := range taskErr.Errors {
				logger.Error("file analysis failed", "error", e)
			}
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *source)
		os.Exit(2)
	}
}

func reportName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// emit writes res as indented JSON to dir/<name>.report.json, or to stdout when
// dir is empty.
func emit(dir, name string, res domain.Result) error {
	if dir == "" {
		return writeJSON(os.Stdout, res)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name+".report.json")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if err := writeJSON(file, res); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
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
