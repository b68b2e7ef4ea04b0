package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is a single money movement between two accounts.
// Timestamp and Amount are carried through but are not part of the scoring model.
type TransactionRecord struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Timestamp     time.Time
	Amount        *decimal.Decimal
}
