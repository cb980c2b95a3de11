package dsp

import "math"

// Limiter is a soft-knee peak limiter: samples above the ceiling are
// compressed toward it with a knee of width softness rather than
// hard-clipped, so it is idempotent on already-sub-ceiling signals.
type Limiter struct {
	ceilingDB float64
	softness  float64
}

// NewLimiter returns a limiter with the given ceiling in dBFS and knee softness.
func NewLimiter(ceilingDB, softness float64) *Limiter {
	return &Limiter{ceilingDB: ceilingDB, softness: softness}
}

// SetParams updates the ceiling and softness.
func (l *Limiter) SetParams(ceilingDB, softness float64) {
	l.ceilingDB = ceilingDB
	l.softness = softness
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// ProcessSample limits a single sample, preserving its sign.
func (l *Limiter) ProcessSample(x float64) float64 {
	ceiling := dbToLinear(l.ceilingDB)
	knee := l.softness
	abs := math.Abs(x)
	if abs <= ceiling {
		return x
	}
	over := abs - ceiling
	t := over / (over + knee)
	limited := ceiling + t*knee
	if x < 0 {
		return -limited
	}
	return limited
}

// Process limits buf in place.
func (l *Limiter) Process(buf []float64) {
	for i, x := range buf {
		buf[i] = l.ProcessSample(x)
	}
}

// Ceiling returns the linear ceiling value used by the limiter.
func (l *Limiter) Ceiling() float64 {
	return dbToLinear(l.ceilingDB)
}
