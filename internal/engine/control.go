package engine

import (
	"github.com/rosswood/keegan/internal/mood"
	"github.com/rosswood/keegan/internal/stem"
)

// PublicState is the read-mostly snapshot consumed by every external
// control surface (tray, HTTP, WebSocket). No interior references: a
// PublicState is a complete, independent copy.
type PublicState struct {
	MoodID        string `json:"moodId"`
	TargetMoodID  string `json:"targetMoodId"`
	ActiveProcess string `json:"activeProcess"`
	Energy        float64 `json:"energy"`
	Intensity     float64 `json:"intensity"`
	Activity      float64 `json:"activity"`
	IdleSeconds   float64 `json:"idleSeconds"`
	Playing       bool    `json:"playing"`
	UpdatedAtMs   int64   `json:"updatedAtMs"`
}

// Snapshot returns a value copy of the current public state. Safe to
// call from any thread; the lock is held only long enough to copy the
// struct.
func (e *Engine) Snapshot() PublicState {
	e.snapshotMu.Lock()
	defer e.snapshotMu.Unlock()
	return e.state
}

// publishSnapshot recomputes and stores PublicState under the
// snapshot lock. activeProcess is the value observed by the most
// recent Tick (or "" before the first tick).
func (e *Engine) publishSnapshot(activeProcess string) {
	e.mu.Lock()
	moodID := e.machine.Current().ID
	targetID := e.machine.Target().ID
	intensity := e.intensity
	effective := clamp01(intensity + 0.3*e.activity.Activity())
	playing := e.isPlaying
	e.mu.Unlock()

	s := PublicState{
		MoodID:        moodID,
		TargetMoodID:  targetID,
		ActiveProcess: activeProcess,
		Energy:        effective,
		Intensity:     intensity,
		Activity:      e.activity.Activity(),
		IdleSeconds:   e.activity.IdleTime(),
		Playing:       playing,
		UpdatedAtMs:   e.now().UnixMilli(),
	}

	e.snapshotMu.Lock()
	e.state = s
	e.snapshotMu.Unlock()
}

// SetMood requests a mood transition. Still a no-op (the target is left
// untouched either way) when the state machine's transition gate
// rejects it, but the rejection itself is now surfaced as
// mood.ErrInvalidMoodTransition so a caller like internal/httpapi can
// map it onto a 4xx response instead of reporting success.
func (e *Engine) SetMood(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.SetTargetMood(id)
}

// SetIntensity sets the base intensity, clamped to [0,1].
func (e *Engine) SetIntensity(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intensity = clamp01(v)
}

// SetPlaying toggles whether RenderBlock produces audio or silence.
func (e *Engine) SetPlaying(playing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isPlaying = playing
}

// TogglePlaying flips the playing flag and returns the new value.
func (e *Engine) TogglePlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isPlaying = !e.isPlaying
	return e.isPlaying
}

// SetMoodPack replaces the active pack, resets the state machine to
// its first mood, and reloads stems for that mood. Commands in flight
// against the old pack (e.g. a pending SetMood) are simply dropped.
// Stem decoding — disk I/O — happens before e.mu is taken, per spec.md
// §5's rule against blocking file I/O on any lock RenderBlock also
// acquires; the lock below only swaps pointers in.
func (e *Engine) SetMoodPack(pack mood.Pack) {
	var initialStems *stem.Bank
	if len(pack.Moods) > 0 {
		initialStems = e.loadStemsForRecipe(pack.Moods[0])
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pack = pack
	e.machine = mood.NewStateMachine(pack)
	e.currentMoodIndex = 0
	e.targetMoodIndex = 0
	if len(pack.Moods) > 0 {
		e.currentStems = initialStems
		e.targetStems = nil
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
