package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/muletrace/internal/domain"
)

// TaskError accumulates the failures of a batch run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// FileResult pairs an input file with its analysis.
type FileResult struct {
	Path   string
	Result domain.Result
}

// BatchAnalyzer analyses many transaction files, one independent analysis per file.
type BatchAnalyzer struct {
	service *AnalysisService
	workers int
}

// NewBatchAnalyzer creates a BatchAnalyzer with the provided concurrency.
func NewBatchAnalyzer(service *AnalysisService, workers int) *BatchAnalyzer {
	if workers <= 0 {
		workers = 4
	}
	return &BatchAnalyzer{service: service, workers: workers}
}

// AnalyzeFiles analyses every path. A failing file does not stop the others; the
// results of successful files are returned in input order alongside a *TaskError
// describing the failures. Context cancellation is returned as-is.
func (b *BatchAnalyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]*FileResult, len(paths))
	var (
		mu      sync.Mutex
		taskErr TaskError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.analyzeFile(gctx, path)
			if err != nil {
				mu.Lock()
				taskErr.append(err)
				mu.Unlock()
				return nil
			}
			results[i] = &FileResult{Path: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]FileResult, 0, len(paths))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, taskErr.asError()
}

func (b *BatchAnalyzer) analyzeFile(ctx context.Context, path string) (domain.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := b.service.AnalyzeCSV(ctx, SourceFile, f)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// IsCancellation reports whether err stems from context cancellation or deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
