package detection

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/muletrace/internal/domain"
)

func analyze(t *testing.T, opts Options, records []domain.TransactionRecord) domain.Result {
	t.Helper()
	return NewEngine(opts).Analyze(context.Background(), records)
}

func profileFor(t *testing.T, res domain.Result, account string) domain.AccountProfile {
	t.Helper()
	for _, p := range res.SuspiciousAccounts {
		if p.AccountID == account {
			return p
		}
	}
	t.Fatalf("account %s not flagged", account)
	return domain.AccountProfile{}
}

func TestEngine_EmptyInput(t *testing.T) {
	res := analyze(t, DefaultOptions(), nil)

	assert.Empty(t, res.SuspiciousAccounts)
	assert.NotNil(t, res.SuspiciousAccounts)
	assert.Empty(t, res.FraudRings)
	assert.NotNil(t, res.FraudRings)
	assert.Equal(t, domain.Summary{}, res.Summary)
}

func TestEngine_Triangle(t *testing.T) {
	res := analyze(t, DefaultOptions(), txs("A", "B", "B", "C", "C", "A"))

	want := domain.Result{
		SuspiciousAccounts: []domain.AccountProfile{
			{AccountID: "A", SuspicionScore: 100, DetectedPatterns: []string{"cycle_length_3"}, RingID: "RING_003"},
			{AccountID: "B", SuspicionScore: 100, DetectedPatterns: []string{"cycle_length_3"}, RingID: "RING_003"},
			{AccountID: "C", SuspicionScore: 100, DetectedPatterns: []string{"cycle_length_3"}, RingID: "RING_003"},
		},
		FraudRings: []domain.FraudRing{
			{RingID: "RING_001", MemberAccounts: []string{"A", "B", "C"}, PatternType: "cycle", RiskScore: 85},
			{RingID: "RING_002", MemberAccounts: []string{"B", "C", "A"}, PatternType: "cycle", RiskScore: 85},
			{RingID: "RING_003", MemberAccounts: []string{"C", "A", "B"}, PatternType: "cycle", RiskScore: 85},
		},
		Summary: domain.Summary{
			TotalAccountsAnalyzed:     3,
			SuspiciousAccountsFlagged: 3,
			FraudRingsDetected:        3,
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestEngine_TriangleCycleContributionPerOccurrence(t *testing.T) {
	g := BuildGraph(txs("A", "B", "B", "C", "C", "A"))
	cycles, err := DetectCycles(context.Background(), g, CycleLimits{})
	require.NoError(t, err)

	board := ScoreCycles(cycles)
	for _, account := range []string{"A", "B", "C"} {
		assert.Equal(t, 3*cyclePoints, board.Points(account), "40 per occurrence, three rotations")
		assert.Equal(t, []string{"cycle_length_3"}, board.Tags(account))
	}

	canonical := ScoreCycles(CanonicalizeCycles(cycles))
	for _, account := range []string{"A", "B", "C"} {
		assert.Equal(t, cyclePoints, canonical.Points(account))
	}
}

func TestEngine_CanonicalMode(t *testing.T) {
	opts := DefaultOptions()
	opts.CanonicalCycles = true
	res := analyze(t, opts, txs("B", "C", "C", "A", "A", "B"))

	require.Len(t, res.FraudRings, 1)
	assert.Equal(t, []string{"A", "B", "C"}, res.FraudRings[0].MemberAccounts)
	assert.Equal(t, 85, res.FraudRings[0].RiskScore)
	for _, p := range res.SuspiciousAccounts {
		assert.Equal(t, 40, p.SuspicionScore)
		assert.Equal(t, "RING_001", p.RingID)
	}
}

func TestEngine_FanIn(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 10; i++ {
		records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("S%d", i), ReceiverID: "R"})
	}

	res := analyze(t, DefaultOptions(), records)

	require.Len(t, res.SuspiciousAccounts, 1)
	r := res.SuspiciousAccounts[0]
	assert.Equal(t, "R", r.AccountID)
	assert.Equal(t, 25, r.SuspicionScore)
	assert.Equal(t, []string{domain.PatternFanIn}, r.DetectedPatterns)
	assert.Equal(t, domain.NoRing, r.RingID)
	assert.Equal(t, 10, res.Summary.TotalAccountsAnalyzed)
}

func TestEngine_FanInAndFanOutOnSameAccount(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 10; i++ {
		records = append(records,
			domain.TransactionRecord{SenderID: fmt.Sprintf("IN%d", i), ReceiverID: "HUB"},
			domain.TransactionRecord{SenderID: "HUB", ReceiverID: fmt.Sprintf("OUT%d", i)},
		)
	}

	res := analyze(t, DefaultOptions(), records)

	hub := profileFor(t, res, "HUB")
	// 25 + 25 for both directions and 15 for 20 transactions of involvement.
	assert.Equal(t, 65, hub.SuspicionScore)
	assert.Equal(t, []string{domain.PatternFanIn, domain.PatternFanOut, domain.PatternHighVelocity}, hub.DetectedPatterns)
}

func TestEngine_Velocity(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 8; i++ {
		records = append(records, domain.TransactionRecord{SenderID: "V", ReceiverID: fmt.Sprintf("X%d", i)})
	}
	for i := 0; i < 7; i++ {
		records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("Y%d", i), ReceiverID: "V"})
	}

	res := analyze(t, DefaultOptions(), records)

	require.Len(t, res.SuspiciousAccounts, 1)
	v := res.SuspiciousAccounts[0]
	assert.Equal(t, "V", v.AccountID)
	assert.Equal(t, 15, v.SuspicionScore)
	assert.Equal(t, []string{domain.PatternHighVelocity}, v.DetectedPatterns)
}

func TestEngine_JustBelowThresholdsIsNotFlagged(t *testing.T) {
	t.Run("nine incoming", func(t *testing.T) {
		var records []domain.TransactionRecord
		for i := 0; i < 9; i++ {
			records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("S%d", i), ReceiverID: "R"})
		}
		assert.Empty(t, analyze(t, DefaultOptions(), records).SuspiciousAccounts)
	})

	t.Run("nine outgoing", func(t *testing.T) {
		var records []domain.TransactionRecord
		for i := 0; i < 9; i++ {
			records = append(records, domain.TransactionRecord{SenderID: "H", ReceiverID: fmt.Sprintf("D%d", i)})
		}
		assert.Empty(t, analyze(t, DefaultOptions(), records).SuspiciousAccounts)
	})

	t.Run("fourteen involvements", func(t *testing.T) {
		var records []domain.TransactionRecord
		for i := 0; i < 7; i++ {
			records = append(records,
				domain.TransactionRecord{SenderID: "V", ReceiverID: fmt.Sprintf("X%d", i)},
				domain.TransactionRecord{SenderID: fmt.Sprintf("Y%d", i), ReceiverID: "V"},
			)
		}
		assert.Empty(t, analyze(t, DefaultOptions(), records).SuspiciousAccounts)
	})
}

func TestEngine_OptionsFallBackToDefaults(t *testing.T) {
	got := NewEngine(Options{FanThreshold: -1, MaxPaths: -5, MaxDepth: 4}).Options()

	assert.Equal(t, Options{
		FanThreshold:      DefaultFanThreshold,
		VelocityThreshold: DefaultVelocityThreshold,
		MaxDepth:          4,
	}, got)
}

func TestScoreboard_MergeKeepsFirstContributionOrder(t *testing.T) {
	cycles := NewScoreboard()
	cycles.Add("C", cyclePoints, CycleTag(3))
	cycles.Add("A", cyclePoints, CycleTag(3))

	fan := NewScoreboard()
	fan.Add("B", fanPoints, domain.PatternFanIn)
	fan.Add("A", fanPoints, domain.PatternFanOut)

	board := Aggregate(cycles, fan, nil)

	assert.Equal(t, []string{"C", "A", "B"}, board.Accounts())
	assert.Equal(t, 65, board.Points("A"))
	assert.Equal(t, []string{CycleTag(3), domain.PatternFanOut}, board.Tags("A"))
}

func TestEngine_SelfTransferCountsOnceForVelocity(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 14; i++ {
		records = append(records, domain.TransactionRecord{SenderID: "S", ReceiverID: "S"})
	}

	res := analyze(t, Options{FanThreshold: 100}, records)
	assert.Empty(t, res.SuspiciousAccounts)
}

func TestEngine_CycleFanInVelocityNotCapped(t *testing.T) {
	records := txs("A", "B", "B", "C", "C", "A")
	for i := 1; i <= 10; i++ {
		records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("S%02d", i), ReceiverID: "A"})
	}
	for i := 1; i <= 3; i++ {
		records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("S%02d", i), ReceiverID: "A"})
	}
	opts := DefaultOptions()
	opts.CanonicalCycles = true

	res := analyze(t, opts, records)

	a := profileFor(t, res, "A")
	assert.Equal(t, 80, a.SuspicionScore)
	assert.Equal(t, []string{"cycle_length_3", domain.PatternFanIn, domain.PatternHighVelocity}, a.DetectedPatterns)
	assert.Equal(t, "A", res.SuspiciousAccounts[0].AccountID)
}

func TestEngine_ScoreCappedAt100(t *testing.T) {
	records := txs("A", "B", "B", "C", "C", "A")
	for i := 0; i < 20; i++ {
		records = append(records, domain.TransactionRecord{SenderID: "A", ReceiverID: fmt.Sprintf("O%d", i)})
	}

	res := analyze(t, DefaultOptions(), records)

	a := profileFor(t, res, "A")
	assert.Equal(t, 100, a.SuspicionScore)
	for _, p := range res.SuspiciousAccounts {
		assert.GreaterOrEqual(t, p.SuspicionScore, 0)
		assert.LessOrEqual(t, p.SuspicionScore, 100)
	}
}

func TestEngine_LastRingWins(t *testing.T) {
	// Two triangles sharing B. B's ring is the last occurrence containing it.
	res := analyze(t, DefaultOptions(), txs("A", "B", "B", "C", "C", "A", "B", "D", "D", "E", "E", "B"))

	var last string
	for _, ring := range res.FraudRings {
		for _, m := range ring.MemberAccounts {
			if m == "B" {
				last = ring.RingID
			}
		}
	}
	assert.Equal(t, last, profileFor(t, res, "B").RingID)
	assert.Equal(t, res.Summary.FraudRingsDetected, len(res.FraudRings))
}

func TestEngine_TieBreakByAccountID(t *testing.T) {
	var records []domain.TransactionRecord
	for _, hub := range []string{"ZED", "ALPHA", "MID"} {
		for i := 0; i < 10; i++ {
			records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("%s-%d", hub, i), ReceiverID: hub})
		}
	}

	res := analyze(t, DefaultOptions(), records)

	var ids []string
	for _, p := range res.SuspiciousAccounts {
		ids = append(ids, p.AccountID)
	}
	assert.Equal(t, []string{"ALPHA", "MID", "ZED"}, ids)
}

func TestEngine_TotalAccountsCountsSendersOnly(t *testing.T) {
	res := analyze(t, DefaultOptions(), txs("A", "B", "A", "C", "D", "B", "A", "B"))
	assert.Equal(t, 2, res.Summary.TotalAccountsAnalyzed)
}

func TestEngine_SkipsMalformedRecords(t *testing.T) {
	records := txs("A", "B", "", "C", "D", "", "B", "C", "C", "A")

	res := analyze(t, DefaultOptions(), records)

	assert.Equal(t, 2, res.Summary.SkippedRecords)
	assert.Equal(t, 3, res.Summary.TotalAccountsAnalyzed)
	assert.Equal(t, 3, res.Summary.FraudRingsDetected)
}

func TestEngine_TruncatedCycleDetectionStillScoresPatterns(t *testing.T) {
	records := completeGraph(7)
	for i := 0; i < 10; i++ {
		records = append(records, domain.TransactionRecord{SenderID: fmt.Sprintf("F%d", i), ReceiverID: "SINK"})
	}
	opts := DefaultOptions()
	opts.MaxPaths = 25

	res := analyze(t, opts, records)

	assert.True(t, res.Summary.CycleDetectionTruncated)
	require.Len(t, res.Summary.Warnings, 1)
	assert.Contains(t, res.Summary.Warnings[0], ErrResourceLimitExceeded.Error())
	sink := profileFor(t, res, "SINK")
	assert.Equal(t, []string{domain.PatternFanIn}, sink.DetectedPatterns)
}

func TestEngine_PatternsHaveNoDuplicates(t *testing.T) {
	records := completeGraph(5)
	res := analyze(t, DefaultOptions(), records)

	require.NotEmpty(t, res.SuspiciousAccounts)
	for _, p := range res.SuspiciousAccounts {
		seen := map[string]bool{}
		for _, tag := range p.DetectedPatterns {
			assert.False(t, seen[tag], "duplicate tag %s on %s", tag, p.AccountID)
			seen[tag] = true
		}
		assert.Greater(t, p.SuspicionScore, 0)
	}
}
