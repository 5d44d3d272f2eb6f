package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffParams defines one exponential delay curve.
type BackoffParams struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// Delay computes the sleep inserted before the next retry. attempt is
// zero-based: the delay after the first failed attempt is Delay(0). The
// exponential term doubles per attempt and is capped at MaxDelay; jitter adds
// a uniform random fraction of the capped term on top, so the result always
// lands in [capped, capped*(1+JitterFactor)].
func (p BackoffParams) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	capped := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if capped > float64(p.MaxDelay) || math.IsInf(capped, 1) {
		capped = float64(p.MaxDelay)
	}
	delay := capped
	if p.JitterFactor > 0 {
		delay += rand.Float64() * p.JitterFactor * capped
	}
	return time.Duration(delay)
}
