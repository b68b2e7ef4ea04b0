package generator

import "time"

// Config drives the synthetic data generator.
type Config struct {
	// Accounts is the size of the background population. Half of it only sends,
	// the other half only receives, so background traffic never forms a cycle.
	Accounts               int
	BackgroundTransactions int

	Rings          int
	MinRingLength  int
	MaxRingLength  int
	FanInHubs      int
	FanOutHubs     int
	FanWidth       int
	VelocityActors int
	VelocityCount  int

	Start time.Time
	Seed  int64
}

// DefaultConfig returns settings that plant every pattern above the default
// detection thresholds.
func DefaultConfig() Config {
	return Config{
		Accounts:               1000,
		BackgroundTransactions: 2000,
		Rings:                  5,
		MinRingLength:          3,
		MaxRingLength:          5,
		FanInHubs:              3,
		FanOutHubs:             3,
		FanWidth:               12,
		VelocityActors:         3,
		VelocityCount:          20,
		Start:                  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:                   42,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Accounts < 2 {
		c.Accounts = def.Accounts
	}
	if c.BackgroundTransactions < 0 {
		c.BackgroundTransactions = 0
	}
	if c.MinRingLength < 3 {
		c.MinRingLength = 3
	}
	if c.MaxRingLength < c.MinRingLength {
		c.MaxRingLength = c.MinRingLength
	}
	if c.FanWidth <= 0 {
		c.FanWidth = def.FanWidth
	}
	if c.VelocityCount <= 0 {
		c.VelocityCount = def.VelocityCount
	}
	if c.Start.IsZero() {
		c.Start = def.Start
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}
