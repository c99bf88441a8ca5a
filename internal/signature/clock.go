package signature

import "time"

// DefaultTimestampTolerance bounds how far a request timestamp may drift
// from the server clock in either direction.
const DefaultTimestampTolerance = 300 * time.Second

// ClockGuard rejects request timestamps outside a symmetric tolerance window
type ClockGuard struct {
	tolerance time.Duration
	now       func() time.Time
}

// NewClockGuard creates a guard with the given tolerance. A zero or negative
// tolerance falls back to the default.
func NewClockGuard(tolerance time.Duration) *ClockGuard {
	if tolerance <= 0 {
		tolerance = DefaultTimestampTolerance
	}
	return &ClockGuard{
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Valid reports whether the unix-seconds timestamp lies within the window.
// The boundary is inclusive: a skew of exactly the tolerance passes. The
// comparison stays in integer seconds; converting the skew to a Duration
// would overflow for timestamps hundreds of years out.
func (g *ClockGuard) Valid(timestamp int64) bool {
	skew := g.now().Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew < 0 {
		// -skew of math.MinInt64 is itself.
		return false
	}
	return skew <= int64(g.tolerance/time.Second)
}

// Tolerance returns the configured window
func (g *ClockGuard) Tolerance() time.Duration {
	return g.tolerance
}
