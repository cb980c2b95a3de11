package engine

import (
	"fmt"
	"math"

	"github.com/rosswood/keegan/internal/dsp"
	"github.com/rosswood/keegan/internal/mood"
	"github.com/rosswood/keegan/internal/story"
)

// Tick runs the ~100ms control-plane heartbeat: it folds in the
// observed foreground process and idle time, drives the mood state
// machine's target, reloads stems on a mood change, requests and
// polls remote stories, updates bio-reactive DSP setpoints, and
// publishes a fresh snapshot. Must be called off the audio thread.
func (e *Engine) Tick(activeProcess string, idleSeconds, dt float64) {
	e.heuristics.SetActiveProcess(activeProcess)
	e.activity.Update(dt, idleSeconds)

	e.mu.Lock()
	bias := e.heuristics.CurrentBias()
	e.machine.SetTargetMood(bias.MoodID)
	e.machine.Update(dt)

	targetID := e.machine.Target().ID
	newTargetIndex := e.pack.IndexOf(targetID)
	indexChanged := newTargetIndex >= 0 && newTargetIndex != e.targetMoodIndex
	var pendingRecipe mood.Recipe
	if indexChanged {
		e.targetMoodIndex = newTargetIndex
		pendingRecipe = e.recipeForMood(newTargetIndex)
	}

	if e.machine.Crossfade() >= 1.0 && e.currentMoodIndex != e.targetMoodIndex {
		e.currentMoodIndex = e.targetMoodIndex
		e.currentStems, e.targetStems = e.targetStems, e.currentStems
	}

	currentRecipe := e.machine.Current()
	effectiveIntensity := clamp01(e.intensity + 0.3*e.activity.Activity())
	e.mu.Unlock()

	// Stem decoding is disk I/O; it must never run with e.mu held (spec.md
	// §5's hard rule against blocking file I/O on any lock RenderBlock
	// also takes). Decode into a local var first, then take the lock only
	// long enough to publish it — and only if nothing superseded this
	// transition while the decode was in flight.
	if indexChanged {
		bank := e.loadStemsForRecipe(pendingRecipe)
		e.mu.Lock()
		if e.targetMoodIndex == newTargetIndex {
			e.targetStems = bank
		}
		e.mu.Unlock()
	}

	if e.storyBank.CountForMood(currentRecipe.ID) < 5 {
		context := fmt.Sprintf("user is in %s; energy %.2f", activeProcess, effectiveIntensity)
		e.storyGen.RequestStory(currentRecipe.ID, context)
	}
	e.storyGen.Poll()

	e.updateNarrativeTrigger(currentRecipe, dt)
	e.updateBioReactiveDSP(currentRecipe)

	e.publishSnapshot(activeProcess)

	rms := math.Float64frombits(e.lastBlockRMS.Load())
	e.telemetry.Publish(e.Snapshot(), rms)
}

// updateNarrativeTrigger implements spec.md §4.H step 7: a slow,
// probabilistic decision to queue a spoken-word story.
func (e *Engine) updateNarrativeTrigger(recipe mood.Recipe, dt float64) {
	e.timeSinceLastStory += dt

	e.voiceMu.Lock()
	hasNext := e.nextStory != nil
	e.voiceMu.Unlock()
	if hasNext {
		return
	}
	if e.timeSinceLastStory < narrativeTriggerFloorSeconds {
		return
	}

	p := recipe.NarrativeFrequency * dt * narrativeProbabilityScale
	if e.rng.Float64() >= p {
		return
	}

	nowSec := float64(e.now().UnixNano()) / 1e9
	s := e.storyBank.PickStory(recipe.ID, nowSec, storyCooldownSeconds)
	if s == nil {
		e.logger.Debug("engine: no story available", "err", fmt.Errorf("%w: %s", story.ErrBankEmptyForMood, recipe.ID))
		return
	}
	e.storyBank.MarkPlayed(s, nowSec)
	e.timeSinceLastStory = 0

	e.voiceMu.Lock()
	e.nextStory = s
	e.voiceMu.Unlock()
}

// updateBioReactiveDSP implements spec.md §4.H's bio-reactive setpoint
// table: binaural carrier targets by mood, an activity-driven breathing
// low-pass, and a time-of-day melatonin high-shelf.
func (e *Engine) updateBioReactiveDSP(recipe mood.Recipe) {
	target := binauralTargetFor(recipe.ID)
	e.binauralLeft.SetFrequency(target.left)
	e.binauralRight.SetFrequency(target.right)

	activity := e.activity.Activity()
	cutoff := 500.0 + 19500.0*activity*activity
	if maxCutoff := 0.45 * e.sampleRate; cutoff > maxCutoff {
		cutoff = maxCutoff
	}
	e.breathingLP.SetParams(dsp.LowPass, cutoff, 0.707, 0)

	hour := e.now().Hour()
	shelfGain := 0.0
	switch {
	case hour >= 23 || hour < 6:
		shelfGain = -12
	case hour >= 21:
		shelfGain = -6
	}
	e.melatoninShelf.SetParams(dsp.HighShelf, 6000, 0.707, shelfGain)
}
