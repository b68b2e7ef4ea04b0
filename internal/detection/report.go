package detection

import (
	"sort"

	"github.com/vanshika/muletrace/internal/domain"
)

// Aggregate merges contributions in the fixed order cycles, fan-in/out, velocity.
func Aggregate(cycles, fan, velocity *Scoreboard) *Scoreboard {
	board := NewScoreboard()
	board.Merge(cycles)
	board.Merge(fan)
	board.Merge(velocity)
	return board
}

// Profiles caps every account's score and attaches its ring assignment, sorted by
// descending score then ascending account id.
func Profiles(board *Scoreboard, rings RingAssignment) []domain.AccountProfile {
	profiles := make([]domain.AccountProfile, 0, board.Len())
	for _, e := range board.entries {
		tags := append(make([]string, 0, len(e.tags)), e.tags...)
		profiles = append(profiles, domain.AccountProfile{
			AccountID:        e.account,
			SuspicionScore:   min(maxScore, e.points),
			DetectedPatterns: tags,
			RingID:           rings.RingFor(e.account),
		})
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].SuspicionScore != profiles[j].SuspicionScore {
			return profiles[i].SuspicionScore > profiles[j].SuspicionScore
		}
		return profiles[i].AccountID < profiles[j].AccountID
	})
	return profiles
}

// BuildReport assembles the final result and its summary counters.
func BuildReport(g *Graph, board *Scoreboard, rings RingAssignment) domain.Result {
	accounts := Profiles(board, rings)
	return domain.Result{
		SuspiciousAccounts: accounts,
		FraudRings:         rings.Rings,
		Summary: domain.Summary{
			TotalAccountsAnalyzed:     g.Len(),
			SuspiciousAccountsFlagged: len(accounts),
			FraudRingsDetected:        len(rings.Rings),
		},
	}
}
