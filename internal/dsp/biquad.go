package dsp

import "math"

// FilterType selects which Audio-EQ-Cookbook biquad topology SetParams computes.
type FilterType int

const (
	LowPass FilterType = iota
	HighPass
	HighShelf
)

// Biquad is a Direct-Form-I biquad filter. SetParams recomputes
// coefficients without resetting the x1/x2/y1/y2 state, so parameter
// changes are click-free within normal operating ranges.
type Biquad struct {
	sampleRate float64
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewBiquad returns a unity-gain passthrough biquad at the given sample rate.
func NewBiquad(sampleRate float64) *Biquad {
	return &Biquad{sampleRate: sampleRate, b0: 1}
}

// SetParams recomputes filter coefficients per the Audio EQ Cookbook.
// gainDB is only meaningful for HighShelf.
func (f *Biquad) SetParams(typ FilterType, freq, q, gainDB float64) {
	omega := twoPi * freq / f.sampleRate
	sn, cs := math.Sin(omega), math.Cos(omega)
	alpha := sn / (2 * q)
	a := math.Pow(10, gainDB/40.0)
	sqrtA := math.Sqrt(a)

	var b0, b1, b2, a0, a1, a2 float64

	switch typ {
	case LowPass:
		b0 = (1 - cs) / 2
		b1 = 1 - cs
		b2 = (1 - cs) / 2
		a0 = 1 + alpha
		a1 = -2 * cs
		a2 = 1 - alpha
	case HighPass:
		b0 = (1 + cs) / 2
		b1 = -(1 + cs)
		b2 = (1 + cs) / 2
		a0 = 1 + alpha
		a1 = -2 * cs
		a2 = 1 - alpha
	case HighShelf:
		b0 = a * ((a + 1) + (a-1)*cs + 2*sqrtA*alpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cs)
		b2 = a * ((a + 1) + (a-1)*cs - 2*sqrtA*alpha)
		a0 = (a + 1) - (a-1)*cs + 2*sqrtA*alpha
		a1 = 2 * ((a - 1) - (a+1)*cs)
		a2 = (a + 1) - (a-1)*cs - 2*sqrtA*alpha
	}

	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = a1/a0, a2/a0
}

// ProcessSample filters one sample.
func (f *Biquad) ProcessSample(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// ProcessBlock filters buf in place.
func (f *Biquad) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}
