package detection

import "github.com/vanshika/muletrace/internal/domain"

type activity struct {
	incoming    int
	outgoing    int
	involvement int
}

// tally counts per-account activity in one pass and returns accounts in order of
// first appearance, sender before receiver.
func tally(txs []domain.TransactionRecord) ([]string, map[string]*activity) {
	var order []string
	counts := make(map[string]*activity)
	get := func(account string) *activity {
		a, ok := counts[account]
		if !ok {
			a = &activity{}
			counts[account] = a
			order = append(order, account)
		}
		return a
	}

	for _, tx := range txs {
		sender := get(tx.SenderID)
		receiver := get(tx.ReceiverID)
		sender.outgoing++
		receiver.incoming++
		sender.involvement++
		if tx.ReceiverID != tx.SenderID {
			receiver.involvement++
		}
	}
	return order, counts
}

// ScanFanInOut flags accounts that receive from, or send to, at least threshold
// transactions. Both directions are scored independently.
func ScanFanInOut(txs []domain.TransactionRecord, threshold int) *Scoreboard {
	board := NewScoreboard()
	order, counts := tally(txs)
	for _, account := range order {
		a := counts[account]
		if a.incoming >= threshold {
			board.Add(account, fanPoints, domain.PatternFanIn)
		}
		if a.outgoing >= threshold {
			board.Add(account, fanPoints, domain.PatternFanOut)
		}
	}
	return board
}

// ScanVelocity flags accounts involved, as sender or receiver, in at least
// threshold transactions. A transaction an account sends to itself counts once.
func ScanVelocity(txs []domain.TransactionRecord, threshold int) *Scoreboard {
	board := NewScoreboard()
	order, counts := tally(txs)
	for _, account := range order {
		if counts[account].involvement >= threshold {
			board.Add(account, velocityPoints, domain.PatternHighVelocity)
		}
	}
	return board
}
