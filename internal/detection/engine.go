// Package detection finds accounts and rings involved in money-laundering-like
// patterns within a batch of transactions: circular fund flows, fan-in/fan-out
// smurfing and abnormal velocity.
package detection

import (
	"context"
	"errors"

	"github.com/vanshika/muletrace/internal/domain"
)

// Engine runs the detection pipeline. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	opts Options
}

// NewEngine returns an Engine configured with opts. Non-positive thresholds fall
// back to the defaults.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Options returns the effective configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Analyze scores txs. Records without a sender or receiver are skipped and counted.
// If cycle detection exceeds its limits or ctx expires, the cycles found so far are
// kept, the remaining stages still run, and the result is flagged as truncated.
func (e *Engine) Analyze(ctx context.Context, txs []domain.TransactionRecord) domain.Result {
	valid, skipped := filterMalformed(txs)

	g := BuildGraph(valid)
	cycles, err := DetectCycles(ctx, g, CycleLimits{MaxPaths: e.opts.MaxPaths, MaxDepth: e.opts.MaxDepth})
	if e.opts.CanonicalCycles {
		cycles = CanonicalizeCycles(cycles)
	}

	rings := AssembleRings(cycles)
	board := Aggregate(
		ScoreCycles(cycles),
		ScanFanInOut(valid, e.opts.FanThreshold),
		ScanVelocity(valid, e.opts.VelocityThreshold),
	)

	res := BuildReport(g, board, rings)
	res.Summary.SkippedRecords = skipped
	if err != nil {
		res.Summary.CycleDetectionTruncated = errors.Is(err, ErrResourceLimitExceeded)
		res.Summary.Warnings = append(res.Summary.Warnings, err.Error())
	}
	return res
}

func filterMalformed(txs []domain.TransactionRecord) ([]domain.TransactionRecord, int) {
	skipped := 0
	for _, tx := range txs {
		if tx.SenderID == "" || tx.ReceiverID == "" {
			skipped++
		}
	}
	if skipped == 0 {
		return txs, 0
	}
	valid := make([]domain.TransactionRecord, 0, len(txs)-skipped)
	for _, tx := range txs {
		if tx.SenderID != "" && tx.ReceiverID != "" {
			valid = append(valid, tx)
		}
	}
	return valid, skipped
}
