// Package stem implements WAV-backed stem playback: a single looping or
// one-shot mono-rendered player, and an ordered bank of stems that mix
// down to one output buffer.
package stem

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rosswood/keegan/internal/wav"
)

// ErrLoadFailed wraps a single stem's decode failure inside
// LoadFromConfig's returned warnings, per spec.md §7's StemLoadFailed
// policy: that one stem is skipped, other stems in the same mood still
// load, and a bank left empty falls back to the sine fallback.
var ErrLoadFailed = errors.New("stem: load failed")

// Config describes one stem entry as loaded from a mood recipe.
type Config struct {
	File        string
	Role        string
	GainDB      float64
	Loop        bool
	Probability float64
}

// Stem owns a decoded, immutable audio buffer and a mutable read cursor.
// Safe for use by a single consumer (the engine's audio thread).
type Stem struct {
	samples  []float32
	channels int
	gainLin  float64
	loop     bool
	cursor   int
}

// Load decodes a WAV file into a new Stem.
func Load(path string, gainDB float64, loop bool) (*Stem, error) {
	a, err := wav.Load(path)
	if err != nil {
		return nil, err
	}
	return &Stem{
		samples:  a.Samples,
		channels: a.Channels,
		gainLin:  dbToLinear(gainDB),
		loop:     loop,
	}, nil
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// frames returns the number of sample frames (per channel) in the buffer.
func (s *Stem) frames() int {
	if s.channels == 0 {
		return 0
	}
	return len(s.samples) / s.channels
}

// Empty reports whether the stem has no decoded audio.
func (s *Stem) Empty() bool { return len(s.samples) == 0 }

// Reset rewinds the read cursor to the start of the buffer.
func (s *Stem) Reset() { s.cursor = 0 }

// IsFinished reports whether a non-looping stem has reached the end of
// its buffer. Always false for a looping stem.
func (s *Stem) IsFinished() bool {
	return !s.loop && s.cursor >= s.frames()
}

// Render writes n mono samples into out[:n], overwriting any existing
// content. Looping stems wrap seamlessly mid-block; non-looping stems
// write zeros for the remainder once exhausted.
func (s *Stem) Render(out []float32, n int) {
	s.renderInto(out, n, false)
}

// RenderMix adds n mono samples into out[:n] rather than overwriting.
func (s *Stem) RenderMix(out []float32, n int) {
	s.renderInto(out, n, true)
}

func (s *Stem) renderInto(out []float32, n int, mix bool) {
	total := s.frames()
	for i := 0; i < n; i++ {
		if total == 0 || s.cursor >= total {
			if s.loop && total > 0 {
				s.cursor = 0
			} else {
				if !mix {
					out[i] = 0
				}
				continue
			}
		}
		v := s.sampleAt(s.cursor) * float32(s.gainLin)
		if mix {
			out[i] += v
		} else {
			out[i] = v
		}
		s.cursor++
	}
}

// sampleAt returns the mono-folded sample at frame index idx: the raw
// sample for a mono source, or the average of left and right for
// stereo. Channel counts beyond 2 use the first two channels only.
func (s *Stem) sampleAt(idx int) float32 {
	if s.channels <= 1 {
		return s.samples[idx]
	}
	base := idx * s.channels
	l := s.samples[base]
	r := s.samples[base+1]
	return 0.5 * (l + r)
}

// Bank is an ordered, loaded collection of stems for one mood.
type Bank struct {
	entries []bankEntry
}

type bankEntry struct {
	stem        *Stem
	probability float64
}

// LoadFromConfig decodes every stem in configs, skipping (and logging
// via the returned warnings) any that fail to load. Other stems in the
// same mood still load.
func LoadFromConfig(configs []Config) (*Bank, []error) {
	b := &Bank{}
	var warnings []error
	for _, c := range configs {
		s, err := Load(c.File, c.GainDB, c.Loop)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%w: %s: %v", ErrLoadFailed, c.File, err))
			continue
		}
		prob := c.Probability
		if prob <= 0 {
			prob = 1
		}
		b.entries = append(b.entries, bankEntry{stem: s, probability: prob})
	}
	return b, warnings
}

// Count returns the number of loaded stems.
func (b *Bank) Count() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// RenderMixed mixes every active stem into out[:n]. A stem whose
// selectionProbability is below 1 is gated per render by rng: a stem
// that loses its gate contributes silence for this render but keeps its
// read cursor advancing so a later selection resumes in sync with its
// looped stems. rng may be nil, in which case every stem always plays
// (the deterministic path TestBankRenderMixedSumsStems uses).
func (b *Bank) RenderMixed(out []float32, n int, rng *rand.Rand) {
	for i := range out[:n] {
		out[i] = 0
	}
	if b == nil {
		return
	}
	for _, e := range b.entries {
		selected := true
		if rng != nil && e.probability < 1 {
			selected = rng.Float64() < e.probability
		}
		if selected {
			e.stem.RenderMix(out, n)
		} else {
			e.stem.skip(n)
		}
	}
}

// skip advances the read cursor by n frames without writing output, so
// a gated-out stem's loop stays phase-consistent with a gated-in one.
func (s *Stem) skip(n int) {
	total := s.frames()
	if total == 0 {
		return
	}
	for i := 0; i < n; i++ {
		if s.cursor >= total {
			if s.loop {
				s.cursor = 0
			} else {
				break
			}
		}
		s.cursor++
	}
}
