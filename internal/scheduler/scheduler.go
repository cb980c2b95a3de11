// Package scheduler derives a per-block density multiplier from a
// mood's energy and density curve, wobbling around a base value with
// a slow LFO so stem/story density never feels perfectly static.
package scheduler

import (
	"math"

	"github.com/rosswood/keegan/internal/mood"
)

const (
	minTempoHz    = 0.5
	maxTempoHz    = 4.0
	minDensity    = 0.05
	maxDensity    = 1.0
	wobbleAmount  = 0.05
	defaultDensity = 0.4
)

// Scheduler tracks phase for one mood's density LFO. Each mood known to
// the engine gets its own instance so switching the current/target
// mood never perturbs a mood that isn't playing (see DESIGN.md's
// resolution of the shared-phase open question).
type Scheduler struct {
	sampleRate float64
	phase      float64
	tempoHz    float64
	baseDensity float64
}

// New returns a scheduler at phase zero with the default base density.
func New(sampleRate float64) *Scheduler {
	return &Scheduler{
		sampleRate:  sampleRate,
		tempoHz:     1.0,
		baseDensity: defaultDensity,
	}
}

// SetMood derives tempo from energy and base density from the mood's
// density curve, without touching the LFO phase.
func (s *Scheduler) SetMood(m mood.Recipe) {
	bpm := 40.0 + m.Energy*80.0
	s.tempoHz = clamp(bpm/60.0, minTempoHz, maxTempoHz)

	if len(m.DensityCurve) > 0 {
		s.baseDensity = clamp(m.DensityCurve[len(m.DensityCurve)-1], minDensity, maxDensity)
	} else {
		s.baseDensity = defaultDensity
	}
}

// NextDensity advances the LFO by blockSize/sampleRate seconds and
// returns the resulting density multiplier in [minDensity, maxDensity].
func (s *Scheduler) NextDensity(blockSize int) float64 {
	dt := float64(blockSize) / s.sampleRate
	s.phase += dt * s.tempoHz
	if s.phase > 1.0 {
		s.phase -= 1.0
	}
	wobble := wobbleAmount * math.Sin(2.0*math.Pi*s.phase)
	return clamp(s.baseDensity+wobble, minDensity, maxDensity)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pool manages one Scheduler per mood id, created lazily on first use.
type Pool struct {
	sampleRate  float64
	schedulers  map[string]*Scheduler
}

// NewPool returns an empty scheduler pool for the given sample rate.
func NewPool(sampleRate float64) *Pool {
	return &Pool{sampleRate: sampleRate, schedulers: make(map[string]*Scheduler)}
}

// For returns the Scheduler for m.ID, creating and priming it with
// m's parameters on first access.
func (p *Pool) For(m mood.Recipe) *Scheduler {
	s, ok := p.schedulers[m.ID]
	if !ok {
		s = New(p.sampleRate)
		p.schedulers[m.ID] = s
	}
	s.SetMood(m)
	return s
}
