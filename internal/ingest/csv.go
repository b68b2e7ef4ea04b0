// Package ingest turns uploaded transaction files into records for the detection engine.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
)

// Column names recognised in the header row.
const (
	ColumnTransactionID = "transaction_id"
	ColumnSenderID      = "sender_id"
	ColumnReceiverID    = "receiver_id"
	ColumnAmount        = "amount"
	ColumnTimestamp     = "timestamp"
)

// ErrMissingColumn indicates the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// MalformedRecordError describes a row that was skipped.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseResult holds the accepted records and the rows that were rejected.
type ParseResult struct {
	Records []domain.TransactionRecord
	Skipped []*MalformedRecordError
}

type row struct {
	TransactionID string
	SenderID      string `validate:"required"`
	ReceiverID    string `validate:"required"`
}

// Parser reads CSV transaction files. A Parser is safe for concurrent use.
type Parser struct {
	validate *validator.Validate
}

// NewParser builds a Parser.
func NewParser() *Parser {
	return &Parser{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ParseCSV reads a header row followed by one transaction per row. Rows without a
// sender or receiver are skipped and reported; a body without a header yields no
// records. Unparseable amounts or timestamps are dropped without rejecting the row.
func (p *Parser) ParseCSV(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{Records: []domain.TransactionRecord{}}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return ParseResult{}, err
	}

	res := ParseResult{Records: []domain.TransactionRecord{}}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(fields) {
			continue
		}

		rec, malformed := p.parseRow(columns, fields, line)
		if malformed != nil {
			res.Skipped = append(res.Skipped, malformed)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (p *Parser) parseRow(columns map[string]int, fields []string, line int) (domain.TransactionRecord, *MalformedRecordError) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	r := row{
		TransactionID: get(ColumnTransactionID),
		SenderID:      get(ColumnSenderID),
		ReceiverID:    get(ColumnReceiverID),
	}
	if err := p.validate.Struct(r); err != nil {
		return domain.TransactionRecord{}, &MalformedRecordError{Line: line, Reason: describe(err)}
	}

	rec := domain.TransactionRecord{
		TransactionID: r.TransactionID,
		SenderID:      r.SenderID,
		ReceiverID:    r.ReceiverID,
		Timestamp:     parseTimestamp(get(ColumnTimestamp)),
	}
	if raw := get(ColumnAmount); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil {
			rec.Amount = &amount
		}
	}
	return rec, nil
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, required := range []string{ColumnSenderID, ColumnReceiverID} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return columns, nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "SenderID":
			missing = append(missing, ColumnSenderID)
		case "ReceiverID":
			missing = append(missing, ColumnReceiverID)
		default:
			missing = append(missing, fe.Field())
		}
	}
	return "missing " + strings.Join(missing, ", ")
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
