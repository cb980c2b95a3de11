package engine

import (
	"math"

	"github.com/rosswood/keegan/internal/dsp"
)

// RenderBlock fills out (interleaved float32 stereo, len >= frames*2)
// with one block of audio and returns the mono mix's RMS, for
// telemetry. Runs on the realtime audio thread: besides the voice lock,
// held for at most one pointer swap, it takes e.mu three times, briefly
// each, to read isPlaying, to copy the state-machine/stem-bank fields,
// and to advance the state machine.
func (e *Engine) RenderBlock(out []float32, frames int) float64 {
	if frames <= 0 || out == nil || len(out) < frames*2 {
		return 0
	}

	e.mu.Lock()
	playing := e.isPlaying
	e.mu.Unlock()
	if !playing {
		for i := 0; i < frames*2; i++ {
			out[i] = 0
		}
		return 0
	}

	e.resizeScratch(frames)

	e.mu.Lock()
	cur := e.machine.Current()
	tgt := e.machine.Target()
	f := e.machine.Crossfade()
	currentStems := e.currentStems
	targetStems := e.targetStems
	intensity := e.intensity
	e.mu.Unlock()

	densityCur := e.schedulers.For(cur).NextDensity(frames)
	densityTgt := e.schedulers.For(tgt).NextDensity(frames)

	if currentStems.Count() > 0 {
		currentStems.RenderMixed(e.stemScratch32, frames, e.rng)
		float32sToFloat64s(e.stemScratch32[:frames], e.musicA)
	} else {
		generateMusic(cur, densityCur, intensity, &e.musicPhase, e.sampleRate, e.musicA)
	}

	if targetStems.Count() > 0 && f < 1.0 {
		targetStems.RenderMixed(e.stemScratch32, frames, e.rng)
		float32sToFloat64s(e.stemScratch32[:frames], e.musicB)
	} else {
		generateMusic(tgt, densityTgt, intensity, &e.musicPhase, e.sampleRate, e.musicB)
	}

	dsp.EqualPowerCrossfade(e.musicA, e.musicB, f, e.mixed)

	e.renderVoice(frames)

	e.ducker.Process(e.voiceBuf, e.mixed, e.sampleRate)
	for i := 0; i < frames; i++ {
		e.mixed[i] += e.voiceBuf[i]
	}

	params := dspParamsFor(cur.ID)
	e.reverb.SetParams(params.reverbPreDelay, params.reverbDecay, 0.25)
	e.reverb.Process(e.mixed, params.reverbWet)

	e.breathingLP.ProcessBlock(e.mixed)
	e.melatoninShelf.ProcessBlock(e.mixed)
	e.limiter.Process(e.mixed)

	var sumSq float64
	for i := 0; i < frames; i++ {
		mono := e.mixed[i]
		sumSq += mono * mono
		binL := e.binauralLeft.Tick() * binauralGain
		binR := e.binauralRight.Tick() * binauralGain
		out[2*i] = float32(mono + binL)
		out[2*i+1] = float32(mono + binR)
	}

	e.mu.Lock()
	e.machine.Update(float64(frames) / e.sampleRate)
	e.mu.Unlock()

	rms := math.Sqrt(sumSq / float64(frames))
	e.lastBlockRMS.Store(math.Float64bits(rms))
	return rms
}

// renderVoice implements the single-lock voice handoff: promote a
// queued nextStory to current under the voice lock, then render the
// current story one-shot outside the lock.
func (e *Engine) renderVoice(frames int) {
	for i := 0; i < frames; i++ {
		e.voiceBuf[i] = 0
	}

	e.voiceMu.Lock()
	if e.nextStory != nil {
		e.currentStory = e.nextStory
		e.nextStory = nil
		if e.currentStory.Audio != nil {
			e.currentStory.Audio.Reset()
		}
	}
	e.voiceMu.Unlock()

	if e.currentStory == nil || e.currentStory.Audio == nil {
		return
	}

	e.currentStory.Audio.Render(e.voiceScratch32, frames)
	float32sToFloat64s(e.voiceScratch32[:frames], e.voiceBuf)

	if e.currentStory.Audio.IsFinished() {
		e.currentStory = nil
	}
}

func float32sToFloat64s(src []float32, dst []float64) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}
