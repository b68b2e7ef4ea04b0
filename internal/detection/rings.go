package detection

import (
	"fmt"

	"github.com/vanshika/muletrace/internal/domain"
)

// RingAssignment is the output of AssembleRings.
type RingAssignment struct {
	Rings []domain.FraudRing
	// ByAccount holds the last ring that touched each member account.
	ByAccount map[string]string
}

// RingFor returns the ring id assigned to account, or domain.NoRing.
func (r RingAssignment) RingFor(account string) string {
	if id, ok := r.ByAccount[account]; ok {
		return id
	}
	return domain.NoRing
}

// AssembleRings turns every cycle occurrence into a ring, in discovery order.
// An account in several occurrences keeps the id of the last one processed.
func AssembleRings(cycles []Cycle) RingAssignment {
	out := RingAssignment{
		Rings:     make([]domain.FraudRing, 0, len(cycles)),
		ByAccount: make(map[string]string),
	}
	for i, c := range cycles {
		members := c.UniqueMembers()
		id := formatRingID(i + 1)
		out.Rings = append(out.Rings, domain.FraudRing{
			RingID:         id,
			MemberAccounts: members,
			PatternType:    domain.PatternTypeCycle,
			RiskScore:      min(maxScore, ringBaseRisk+ringRiskPerMember*len(members)),
		})
		for _, account := range members {
			out.ByAccount[account] = id
		}
	}
	return out
}

func formatRingID(n int) string {
	return fmt.Sprintf("RING_%03d", n)
}

// CycleTag is the pattern tag for membership in a cycle of n accounts.
func CycleTag(n int) string {
	return fmt.Sprintf("cycle_length_%d", n)
}

// ScoreCycles credits every member of every cycle occurrence.
func ScoreCycles(cycles []Cycle) *Scoreboard {
	board := NewScoreboard()
	for _, c := range cycles {
		members := c.UniqueMembers()
		tag := CycleTag(len(members))
		for _, account := range members {
			board.Add(account, cyclePoints, tag)
		}
	}
	return board
}
