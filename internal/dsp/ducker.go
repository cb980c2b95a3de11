package dsp

import "math"

// Ducker is an RMS sidechain ducking compressor: it attenuates a target
// buffer based on the envelope level of a sidechain buffer (voice
// quietens music).
type Ducker struct {
	attackMs   float64
	releaseMs  float64
	ratio      float64
	thresholdDB float64
	envelope   float64
}

// NewDucker returns a ducker with the given attack/release times (ms),
// compression ratio, and threshold in dBFS.
func NewDucker(attackMs, releaseMs, ratio, thresholdDB float64) *Ducker {
	return &Ducker{attackMs: attackMs, releaseMs: releaseMs, ratio: ratio, thresholdDB: thresholdDB}
}

// SetParams updates the ducker's parameters.
func (d *Ducker) SetParams(attackMs, releaseMs, ratio, thresholdDB float64) {
	d.attackMs, d.releaseMs, d.ratio, d.thresholdDB = attackMs, releaseMs, ratio, thresholdDB
}

// Process attenuates target in place using sidechain as the detector
// signal, at the given sample rate.
func (d *Ducker) Process(sidechain, target []float64, sampleRate float64) {
	if len(target) == 0 {
		return
	}
	attackCoeff := math.Exp(-1.0 / (0.001 * d.attackMs * sampleRate))
	releaseCoeff := math.Exp(-1.0 / (0.001 * d.releaseMs * sampleRate))
	thresholdLin := dbToLinear(d.thresholdDB)

	for i := range target {
		var sc float64
		if i < len(sidechain) {
			sc = sidechain[i]
		}
		s := sc * sc
		if s > d.envelope {
			d.envelope = attackCoeff*(d.envelope-s) + s
		} else {
			d.envelope = releaseCoeff*(d.envelope-s) + s
		}
		rms := math.Sqrt(math.Max(d.envelope, 0))

		gain := 1.0
		if rms > thresholdLin {
			over := rms/thresholdLin - 1
			gainDB := -over * (d.ratio - 1) * 6.0
			gain = dbToLinear(gainDB)
		}
		target[i] *= gain
	}
}
