package domain

// NoRing marks an account that is not a member of any detected ring.
const NoRing = "NONE"

// PatternTypeCycle is the only ring pattern produced today.
const PatternTypeCycle = "cycle"

// Pattern tags attached to suspicious accounts.
const (
	PatternFanIn        = "fan_in_smurfing"
	PatternFanOut       = "fan_out_smurfing"
	PatternHighVelocity = "high_velocity"
)

// AccountProfile is the per-account outcome of an analysis.
type AccountProfile struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   int      `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

// FraudRing groups the accounts of one detected cycle occurrence.
type FraudRing struct {
	RingID         string   `json:"ring_id"`
	MemberAccounts []string `json:"member_accounts"`
	PatternType    string   `json:"pattern_type"`
	RiskScore      int      `json:"risk_score"`
}

// Summary carries the report counters.
type Summary struct {
	TotalAccountsAnalyzed     int  `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int  `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int  `json:"fraud_rings_detected"`
	SkippedRecords            int  `json:"skipped_records"`
	CycleDetectionTruncated   bool `json:"cycle_detection_truncated"`
	// Warnings lists skipped rows and search limits hit, in that order.
	Warnings []string `json:"warnings,omitempty"`
}

// Result is the complete output of one analysis call. Only the three report
// sections are serialised; AnalysisID travels out of band.
type Result struct {
	AnalysisID         string           `json:"-"`
	SuspiciousAccounts []AccountProfile `json:"suspicious_accounts"`
	FraudRings         []FraudRing      `json:"fraud_rings"`
	Summary            Summary          `json:"summary"`
}
