// Package dsp implements the realtime signal-processing primitives the
// engine composes by value: oscillator, biquad filter, plate reverb,
// soft limiter, RMS ducking compressor, and equal-power crossfade.
package dsp

import "math"

const twoPi = 2 * math.Pi

// Oscillator is a simple sine generator with free-running phase.
type Oscillator struct {
	sampleRate float64
	phase      float64
	freq       float64
}

// NewOscillator returns an oscillator at the given sample rate, starting
// silent (zero frequency) with phase at zero.
func NewOscillator(sampleRate float64) *Oscillator {
	return &Oscillator{sampleRate: sampleRate}
}

// SetFrequency updates the oscillator's frequency in Hz.
func (o *Oscillator) SetFrequency(freq float64) { o.freq = freq }

// Tick advances the oscillator by one sample and returns sin(phase).
func (o *Oscillator) Tick() float64 {
	v := math.Sin(o.phase)
	o.phase += twoPi * o.freq / o.sampleRate
	if o.phase >= twoPi {
		o.phase -= twoPi
	}
	return v
}

// MixBlock accumulates gain*sin(phase) into out for len(out) samples.
func (o *Oscillator) MixBlock(out []float64, gain float64) {
	delta := twoPi * o.freq / o.sampleRate
	for i := range out {
		out[i] += math.Sin(o.phase) * gain
		o.phase += delta
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}
