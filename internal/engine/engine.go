// Package engine is the orchestrator: the per-block render pipeline,
// the per-tick control updates, and the published state snapshot that
// every external surface (tray, HTTP, WebSocket) reads from.
package engine

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rosswood/keegan/internal/dsp"
	"github.com/rosswood/keegan/internal/heuristics"
	"github.com/rosswood/keegan/internal/mood"
	"github.com/rosswood/keegan/internal/scheduler"
	"github.com/rosswood/keegan/internal/stem"
	"github.com/rosswood/keegan/internal/story"
)

// narrativeProbabilityScale is the arbitrary scalar folded into the
// narrative-trigger probability (see spec.md §9's open question on
// this constant). Named here so any cadence test has one place to
// point at.
const narrativeProbabilityScale = 0.1

// storyCooldownSeconds is the fixed per-story replay cooldown used by
// the narrative trigger, independent of any globally configured value.
const storyCooldownSeconds = 60.0

// narrativeTriggerFloorSeconds is the minimum time since the last
// story before a new one is even considered.
const narrativeTriggerFloorSeconds = 60.0

// binauralGain is the per-channel additive gain applied to the binaural
// oscillators at the final stereo interleave step.
const binauralGain = 0.03

// defaultSampleRate and defaultBlockSize mirror the audio device
// adaptor's configuration in spec.md §4.I.
const (
	defaultSampleRate = 48000.0
	defaultBlockSize  = 512
)

// StoryGenerator is the remote "story generation" collaborator's
// contract (excluded surface; see internal/storygen for the concrete
// HTTP-backed implementation). RequestStory must never block the
// caller; Poll drains any stories it has finished generating into the
// bank passed at construction.
type StoryGenerator interface {
	RequestStory(moodID, context string)
	Poll()
}

type noopStoryGenerator struct{}

func (noopStoryGenerator) RequestStory(string, string) {}
func (noopStoryGenerator) Poll()                       {}

// Telemetry is the telemetry sink's contract (excluded surface; see
// internal/telemetry). Publish must never block the tick thread for
// longer than a channel send.
type Telemetry interface {
	Publish(state PublicState, blockRMS float64)
}

type noopTelemetry struct{}

func (noopTelemetry) Publish(PublicState, float64) {}

// moodDspParams bundles the per-mood reverb/filter setpoints from
// spec.md §4.H's table.
type moodDspParams struct {
	reverbWet      float64
	reverbDecay    float64
	reverbPreDelay float64
	masterLPHz     float64
}

var dspParamsByMood = map[string]moodDspParams{
	"focus_room":   {reverbWet: 0.20, reverbDecay: 0.4, reverbPreDelay: 15, masterLPHz: 12000},
	"rain_cave":    {reverbWet: 0.50, reverbDecay: 0.7, reverbPreDelay: 40, masterLPHz: 16000},
	"arcade_night": {reverbWet: 0.25, reverbDecay: 0.3, reverbPreDelay: 10, masterLPHz: 18000},
	"sleep_ship":   {reverbWet: 0.35, reverbDecay: 0.6, reverbPreDelay: 30, masterLPHz: 6000},
}

var fallbackDspParams = moodDspParams{reverbWet: 0.30, reverbDecay: 0.5, reverbPreDelay: 20, masterLPHz: 18000}

func dspParamsFor(moodID string) moodDspParams {
	if p, ok := dspParamsByMood[moodID]; ok {
		return p
	}
	return fallbackDspParams
}

type binauralTarget struct{ left, right float64 }

var binauralTargetsByMood = map[string]binauralTarget{
	"focus_room":   {200, 240},
	"rain_cave":    {120, 126},
	"sleep_ship":   {80, 82},
	"arcade_night": {150, 175},
}

var fallbackBinauralTarget = binauralTarget{200, 240}

func binauralTargetFor(moodID string) binauralTarget {
	if t, ok := binauralTargetsByMood[moodID]; ok {
		return t
	}
	return fallbackBinauralTarget
}

// Engine owns the entire audio pipeline and its control-plane state.
// Safe for concurrent use: RenderBlock runs on the realtime audio
// thread, Tick on a ~100ms control thread, and the Set* methods from
// external command threads.
type Engine struct {
	sampleRate float64
	blockSize  int

	mu               sync.Mutex
	intensity        float64
	isPlaying        bool
	pack             mood.Pack
	machine          *mood.StateMachine
	currentMoodIndex int
	targetMoodIndex  int
	currentStems     *stem.Bank
	targetStems      *stem.Bank

	heuristics *heuristics.AppHeuristics
	activity   *heuristics.ActivityMonitor
	schedulers *scheduler.Pool

	storyBank          *story.Bank
	storyGen           StoryGenerator
	telemetry          Telemetry
	timeSinceLastStory float64
	rng                *rand.Rand

	voiceMu      sync.Mutex
	currentStory *story.Story
	nextStory    *story.Story

	reverb         *dsp.Reverb
	limiter        *dsp.Limiter
	ducker         *dsp.Ducker
	binauralLeft   *dsp.Oscillator
	binauralRight  *dsp.Oscillator
	breathingLP    *dsp.Biquad
	melatoninShelf *dsp.Biquad

	musicPhase float64
	musicA     []float64
	musicB     []float64
	voiceBuf   []float64
	mixed      []float64
	stemScratch32 []float32
	voiceScratch32 []float32

	snapshotMu sync.Mutex
	state      PublicState

	lastBlockRMS atomic.Uint64

	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger injects a structured logger. Defaults to a no-op handler
// when not supplied, so Engine is fully constructible in tests without
// wiring up logging (see spec.md §9's "globals" note).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStoryGenerator injects the remote story-generation collaborator.
// Defaults to a no-op that never produces stories.
func WithStoryGenerator(gen StoryGenerator) Option {
	return func(e *Engine) { e.storyGen = gen }
}

// WithStoryBank injects a pre-populated story bank (e.g. loaded from
// the stories config file by the caller before construction).
func WithStoryBank(bank *story.Bank) Option {
	return func(e *Engine) { e.storyBank = bank }
}

// WithTelemetry injects the telemetry sink. Defaults to a no-op.
func WithTelemetry(t Telemetry) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithRand injects a deterministic random source, used by tests that
// need reproducible narrative-trigger and probability-gated behavior.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock injects a deterministic clock, used by tests that need
// reproducible melatonin-shelf and snapshot-timestamp behavior.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine on the given mood pack at the given sample
// rate, fully parked (not playing) until SetPlaying(true) is called.
func New(sampleRate float64, blockSize int, pack mood.Pack, opts ...Option) *Engine {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	e := &Engine{
		sampleRate:     sampleRate,
		blockSize:      blockSize,
		intensity:      0.7,
		pack:           pack,
		machine:        mood.NewStateMachine(pack),
		heuristics:     heuristics.WithDefaults(nil),
		activity:       heuristics.NewActivityMonitor(),
		schedulers:     scheduler.NewPool(sampleRate),
		storyBank:      story.NewBank(nil),
		storyGen:       noopStoryGenerator{},
		telemetry:      noopTelemetry{},
		rng:            rand.New(rand.NewSource(1)),
		reverb:         dsp.NewReverb(sampleRate),
		limiter:        dsp.NewLimiter(-1.0, 0.05),
		ducker:         dsp.NewDucker(15, 350, 2.5, -18),
		binauralLeft:   dsp.NewOscillator(sampleRate),
		binauralRight:  dsp.NewOscillator(sampleRate),
		breathingLP:    dsp.NewBiquad(sampleRate),
		melatoninShelf: dsp.NewBiquad(sampleRate),
		logger:         slog.New(slog.DiscardHandler),
		now:            time.Now,
	}
	e.breathingLP.SetParams(dsp.LowPass, 20000, 0.707, 0)
	e.melatoninShelf.SetParams(dsp.HighShelf, 8000, 0.707, 0)

	for _, opt := range opts {
		opt(e)
	}

	e.resizeScratch(blockSize)
	if len(pack.Moods) > 0 {
		e.currentStems = e.loadStemsForRecipe(e.recipeForMood(0))
	}
	e.publishSnapshot("")
	return e
}

func (e *Engine) resizeScratch(frames int) {
	if len(e.musicA) == frames {
		return
	}
	e.musicA = make([]float64, frames)
	e.musicB = make([]float64, frames)
	e.voiceBuf = make([]float64, frames)
	e.mixed = make([]float64, frames)
	e.stemScratch32 = make([]float32, frames)
	e.voiceScratch32 = make([]float32, frames)
}

// recipeForMood returns a value copy of pack.Moods[idx], or the zero
// Recipe if idx is out of range. Cheap: must be called with mu held,
// but never touches disk.
func (e *Engine) recipeForMood(idx int) mood.Recipe {
	if idx < 0 || idx >= len(e.pack.Moods) {
		return mood.Recipe{}
	}
	return e.pack.Moods[idx]
}

// loadStemsForRecipe decodes the stems declared by recipe. This is
// disk I/O and WAV decoding: per spec.md §5, callers MUST run it
// without e.mu held and swap the resulting bank in under a separate,
// short lock acquisition.
func (e *Engine) loadStemsForRecipe(recipe mood.Recipe) *stem.Bank {
	if len(recipe.Stems) == 0 {
		return nil
	}
	bank, warnings := stem.LoadFromConfig(recipe.Stems)
	for _, w := range warnings {
		e.logger.Warn("engine: stem load failed", "mood", recipe.ID, "err", w)
	}
	return bank
}

func generateMusic(recipe mood.Recipe, density, intensity float64, phase *float64, sampleRate float64, out []float64) {
	freq := 110.0 + 220.0*recipe.Energy*intensity
	amp := 0.2 + 0.3*density
	for i := range out {
		v := math.Sin(*phase) * amp
		v += math.Sin(*phase*2.0) * recipe.Tension * 0.1
		out[i] = v
		*phase += 2.0 * math.Pi * freq / sampleRate
		if *phase > 2.0*math.Pi {
			*phase -= 2.0 * math.Pi
		}
	}
}
