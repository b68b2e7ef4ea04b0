// Package repository stores and loads transaction history in the graph database.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/graph"
)

const (
	defaultPageSize  = 5000
	defaultBatchSize = 1000
)

// Repository reads and writes SENT relationships between Account nodes.
type Repository struct {
	client    graph.Client
	pageSize  int
	batchSize int
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{
		client:    client,
		pageSize:  defaultPageSize,
		batchSize: defaultBatchSize,
	}
}

// WithPageSize overrides the number of rows fetched per read.
func (r *Repository) WithPageSize(n int) *Repository {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// WithBatchSize overrides the number of rows sent per write.
func (r *Repository) WithBatchSize(n int) *Repository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// SaveTransactions appends txs after any already stored, preserving their order.
func (r *Repository) SaveTransactions(ctx context.Context, txs []domain.TransactionRecord) error {
	if len(txs) == 0 {
		return nil
	}
	for _, tx := range txs {
		if tx.SenderID == "" || tx.ReceiverID == "" {
			return errors.New("both sender and receiver account IDs are required")
		}
	}

	res, err := r.client.ExecuteRead(ctx, maxSequenceCypher, nil)
	if err != nil {
		return fmt.Errorf("read transaction sequence: %w", err)
	}
	next := int64(0)
	if len(res.Records) > 0 {
		next = toInt64(res.Records[0]["maxSeq"]) + 1
	}

	for start := 0; start < len(txs); start += r.batchSize {
		end := min(start+r.batchSize, len(txs))
		rows := make([]map[string]any, 0, end-start)
		for i, tx := range txs[start:end] {
			rows = append(rows, transactionParams(tx, next+int64(start+i)))
		}
		if _, err := r.client.ExecuteWrite(ctx, saveTransactionsCypher, map[string]any{"rows": rows}); err != nil {
			return fmt.Errorf("save transactions %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// ListTransactions loads every stored transaction in insertion order.
func (r *Repository) ListTransactions(ctx context.Context) ([]domain.TransactionRecord, error) {
	var out []domain.TransactionRecord
	for skip := 0; ; skip += r.pageSize {
		res, err := r.client.ExecuteRead(ctx, listTransactionsCypher, map[string]any{
			"skip":  skip,
			"limit": r.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		for _, rec := range res.Records {
			out = append(out, toTransaction(rec))
		}
		if len(res.Records) < r.pageSize {
			break
		}
	}
	if out == nil {
		out = []domain.TransactionRecord{}
	}
	return out, nil
}

func transactionParams(tx domain.TransactionRecord, seq int64) map[string]any {
	params := map[string]any{
		"transactionId": tx.TransactionID,
		"senderId":      tx.SenderID,
		"receiverId":    tx.ReceiverID,
		"seq":           seq,
		"amount":        nil,
		"timestamp":     nil,
	}
	if tx.Amount != nil {
		params["amount"] = tx.Amount.String()
	}
	if !tx.Timestamp.IsZero() {
		params["timestamp"] = tx.Timestamp.UTC().Format(time.RFC3339)
	}
	return params
}

func toTransaction(rec graph.Record) domain.TransactionRecord {
	tx := domain.TransactionRecord{
		TransactionID: rec.String("transactionId"),
		SenderID:      rec.String("senderId"),
		ReceiverID:    rec.String("receiverId"),
	}
	if raw := rec.String("amount"); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil {
			tx.Amount = &amount
		}
	}
	if raw := rec.String("timestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			tx.Timestamp = ts.UTC()
		}
	}
	return tx
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return -1
	}
}
