package detection

// Default scoring thresholds.
const (
	DefaultFanThreshold      = 10
	DefaultVelocityThreshold = 15
)

// Points awarded per triggered pattern.
const (
	cyclePoints    = 40
	fanPoints      = 25
	velocityPoints = 15
	maxScore       = 100

	ringBaseRisk      = 70
	ringRiskPerMember = 5
)

// Options tunes an Engine. The zero value is not useful; start from DefaultOptions.
type Options struct {
	// FanThreshold is the transaction count at which an account is flagged for
	// fan-in (as receiver) or fan-out (as sender).
	FanThreshold int
	// VelocityThreshold is the total involvement count at which an account is
	// flagged for high velocity.
	VelocityThreshold int
	// MaxPaths bounds the number of path extensions the cycle search may make.
	// Zero means unbounded.
	MaxPaths int
	// MaxDepth bounds the length of explored paths. Zero means unbounded.
	MaxDepth int
	// CanonicalCycles collapses rotations of the same cycle into one occurrence.
	// Off by default: each rotation counts toward scores and produces its own ring.
	CanonicalCycles bool
}

// DefaultOptions returns the thresholds used by the reference scoring model with
// no resource ceiling.
func DefaultOptions() Options {
	return Options{
		FanThreshold:      DefaultFanThreshold,
		VelocityThreshold: DefaultVelocityThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.FanThreshold <= 0 {
		o.FanThreshold = DefaultFanThreshold
	}
	if o.VelocityThreshold <= 0 {
		o.VelocityThreshold = DefaultVelocityThreshold
	}
	if o.MaxPaths < 0 {
		o.MaxPaths = 0
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = 0
	}
	return o
}
