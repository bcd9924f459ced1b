package generator

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"
)

// drawNegativeBinomial returns the number of failures before nb.Successes
// successes, as a sum of geometric draws.
func drawNegativeBinomial(r *rand.Rand, nb NegativeBinomial) int {
	if nb.P >= 1 {
		return 0
	}
	logQ := math.Log1p(-nb.P)
	failures := 0
	for i := 0; i < nb.Successes; i++ {
		// 1-U is in (0, 1], so the log is finite.
		failures += int(math.Floor(math.Log(1-r.Float64()) / logQ))
	}
	return failures
}

func drawLogNormal(r *rand.Rand, ln LogNormal) float64 {
	return math.Exp(ln.Mu + ln.Sigma*r.NormFloat64())
}

// linearRamp mirrors an evenly spaced sequence from start to end over n points.
func linearRamp(ramp LinearRamp, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = ramp.Start
		return out
	}
	step := (ramp.End - ramp.Start) / float64(n-1)
	for i := range out {
		out[i] = ramp.Start + step*float64(i)
	}
	return out
}

// SignupRepair is the policy for candidate sessions that start before the
// owner signed up: such a session is moved to signup plus a uniformly drawn
// whole number of hours in [0, MaxJitterHours). Sessions already at or after
// signup are left unchanged and consume no randomness.
type SignupRepair struct {
	MaxJitterHours int
}

// Apply returns the repaired session start.
func (p SignupRepair) Apply(r *rand.Rand, start, signup time.Time) time.Time {
	if !start.Before(signup) {
		return start
	}
	if p.MaxJitterHours <= 0 {
		return signup
	}
	return signup.Add(time.Duration(r.IntN(p.MaxJitterHours)) * time.Hour)
}

// idCounter hands out sequential prefixed ids starting at 1.
type idCounter struct {
	prefix string
	next   int
}

func newIDCounter(prefix string) *idCounter {
	return &idCounter{prefix: prefix, next: 1}
}

func (c *idCounter) Next() string {
	id := c.prefix + strconv.Itoa(c.next)
	c.next++
	return id
}

// Issued returns how many ids were handed out.
func (c *idCounter) Issued() int {
	return c.next - 1
}
