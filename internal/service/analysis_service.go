// Package service orchestrates parsing, detection and instrumentation for one analysis.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/muletrace/internal/detection"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/metrics"
)

// Analysis sources used for logging and metrics labels.
const (
	SourceUpload = "upload"
	SourceGraph  = "graph"
	SourceFile   = "file"
)

// maxSkipWarnings caps how many malformed rows are itemised in a result.
const maxSkipWarnings = 20

// ErrSourceUnavailable indicates no stored transaction source is configured.
var ErrSourceUnavailable = errors.New("stored transaction source is not configured")

// TransactionSource supplies previously stored transactions.
type TransactionSource interface {
	ListTransactions(ctx context.Context) ([]domain.TransactionRecord, error)
}

// AnalysisService runs one independent analysis per call; calls share no state.
type AnalysisService struct {
	logger  *slog.Logger
	engine  *detection.Engine
	parser  *ingest.Parser
	source  TransactionSource
	metrics *metrics.Recorder
	timeout time.Duration
	newID   func() string
	nowFn   func() time.Time
}

// Option customises an AnalysisService.
type Option func(*AnalysisService)

// WithSource enables analyses over stored transactions.
func WithSource(src TransactionSource) Option {
	return func(s *AnalysisService) { s.source = src }
}

// WithMetrics records every analysis on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *AnalysisService) { s.metrics = rec }
}

// WithTimeout bounds each analysis. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *AnalysisService) { s.timeout = d }
}

// WithIDGenerator overrides analysis id generation (used in tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *AnalysisService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the time provider (used primarily in tests).
func WithClock(nowFn func() time.Time) Option {
	return func(s *AnalysisService) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// NewAnalysisService constructs an AnalysisService.
func NewAnalysisService(logger *slog.Logger, engine *detection.Engine, parser *ingest.Parser, opts ...Option) *AnalysisService {
	s := &AnalysisService{
		logger: logger.With("component", "analysis"),
		engine: engine,
		parser: parser,
		newID:  func() string { return uuid.NewString() },
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasSource reports whether stored transactions can be analysed.
func (s *AnalysisService) HasSource() bool {
	return s.source != nil
}

// AnalyzeCSV parses a CSV transaction file and analyses it.
func (s *AnalysisService) AnalyzeCSV(ctx context.Context, source string, r io.Reader) (domain.Result, error) {
	parsed, err := s.parser.ParseCSV(r)
	if err != nil {
		s.metrics.ObserveFailure(source)
		return domain.Result{}, fmt.Errorf("parse transactions: %w", err)
	}
	return s.analyze(ctx, source, parsed.Records, parsed.Skipped), nil
}

// AnalyzeStored analyses every transaction held by the configured source.
func (s *AnalysisService) AnalyzeStored(ctx context.Context) (domain.Result, error) {
	if s.source == nil {
		return domain.Result{}, ErrSourceUnavailable
	}
	txs, err := s.source.ListTransactions(ctx)
	if err != nil {
		s.metrics.ObserveFailure(SourceGraph)
		return domain.Result{}, fmt.Errorf("load stored transactions: %w", err)
	}
	return s.analyze(ctx, SourceGraph, txs, nil), nil
}

// AnalyzeRecords runs the detection engine over already materialised records.
func (s *AnalysisService) AnalyzeRecords(ctx context.Context, source string, txs []domain.TransactionRecord) domain.Result {
	return s.analyze(ctx, source, txs, nil)
}

// analyze folds rows rejected upstream by the parser into the summary before the
// result is observed and logged.
func (s *AnalysisService) analyze(ctx context.Context, source string, txs []domain.TransactionRecord, rejected []*ingest.MalformedRecordError) domain.Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := s.newID()
	start := s.nowFn()
	res := s.engine.Analyze(ctx, txs)
	elapsed := s.nowFn().Sub(start)
	res.AnalysisID = id
	res.Summary.SkippedRecords += len(rejected)
	res.Summary.Warnings = append(skipWarnings(rejected), res.Summary.Warnings...)

	s.metrics.ObserveAnalysis(source, res, elapsed)

	attrs := []any{
		"analysisId", id,
		"source", source,
		"records", len(txs),
		"skipped", res.Summary.SkippedRecords,
		"senders", res.Summary.TotalAccountsAnalyzed,
		"flagged", res.Summary.SuspiciousAccountsFlagged,
		"rings", res.Summary.FraudRingsDetected,
		"duration_ms", elapsed.Milliseconds(),
	}
	if res.Summary.CycleDetectionTruncated {
		s.logger.Warn("cycle detection truncated", append(attrs, "warnings", res.Summary.Warnings)...)
	} else {
		s.logger.Info("analysis complete", attrs...)
	}
	return res
}

func skipWarnings(skipped []*ingest.MalformedRecordError) []string {
	if len(skipped) == 0 {
		return nil
	}
	var out []string
	for i, rec := range skipped {
		if i == maxSkipWarnings {
			out = append(out, fmt.Sprintf("%d more malformed records skipped", len(skipped)-maxSkipWarnings))
			break
		}
		out = append(out, "skipped malformed record: "+rec.Error())
	}
	return out
}
