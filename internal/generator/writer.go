package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteCSV serialises transactions with the header accepted by the ingest parser.
func WriteCSV(w io.Writer, txs []domain.TransactionRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		ingest.ColumnTransactionID,
		ingest.ColumnSenderID,
		ingest.ColumnReceiverID,
		ingest.ColumnAmount,
		ingest.ColumnTimestamp,
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tx := range txs {
		var amount, ts string
		if tx.Amount != nil {
			amount = tx.Amount.StringFixed(2)
		}
		if !tx.Timestamp.IsZero() {
			ts = tx.Timestamp.UTC().Format(timestampLayout)
		}
		if err := cw.Write([]string{tx.TransactionID, tx.SenderID, tx.ReceiverID, amount, ts}); err != nil {
			return fmt.Errorf("write %s: %w", tx.TransactionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDataset writes transactions.csv under dir and returns its path.
func WriteDataset(dataset Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, "transactions.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteCSV(file, dataset.Transactions); err != nil {
		return "", fmt.Errorf("encode csv for %s: %w", path, err)
	}
	return path, file.Close()
}
