package mood

import "errors"

// DefaultFadeDuration is the crossfade time, in seconds, used when a new
// StateMachine is constructed without an explicit override.
const DefaultFadeDuration = 8.0

// ErrInvalidMoodTransition is returned by SetTargetMood when id names a
// mood outside the pack, or one the current recipe's AllowedTransitions
// does not permit. Per spec.md §7 this is not a user-facing error: the
// state machine itself already no-ops on it (the target is left
// untouched), and callers such as internal/engine.Engine.Tick that
// drive transitions from heuristics ignore it outright. internal/httpapi
// maps it to a 409 response for the one caller — an explicit
// POST /api/mood — where a client benefits from knowing the request
// was rejected rather than silently swallowed.
var ErrInvalidMoodTransition = errors.New("mood: invalid transition")

// StateMachine holds a mood pack plus the current/target crossfade
// state. Not safe for concurrent use; callers that share it across
// threads must provide their own synchronization (see internal/engine).
type StateMachine struct {
	pack         Pack
	currentIndex int
	targetIndex  int
	fadeProgress float64
	fadeDuration float64
}

// NewStateMachine builds a state machine parked on the pack's first
// mood, fully faded in, with the default fade duration.
func NewStateMachine(pack Pack) *StateMachine {
	return &StateMachine{
		pack:         pack,
		fadeProgress: 1.0,
		fadeDuration: DefaultFadeDuration,
	}
}

// SetFadeDuration overrides the crossfade time in seconds.
func (m *StateMachine) SetFadeDuration(seconds float64) {
	m.fadeDuration = seconds
}

// Pack returns the mood pack this machine is driving.
func (m *StateMachine) Pack() Pack { return m.pack }

// Current returns the current recipe.
func (m *StateMachine) Current() Recipe { return m.pack.Moods[m.currentIndex] }

// Target returns the target recipe.
func (m *StateMachine) Target() Recipe { return m.pack.Moods[m.targetIndex] }

// CurrentIndex returns the index of the current recipe within the pack.
func (m *StateMachine) CurrentIndex() int { return m.currentIndex }

// TargetIndex returns the index of the target recipe within the pack.
func (m *StateMachine) TargetIndex() int { return m.targetIndex }

// Crossfade returns the linear [0,1] fade progress from current to target.
func (m *StateMachine) Crossfade() float64 { return m.fadeProgress }

// SetTargetMood resolves id to an index and, if the transition is
// permitted, starts a new crossfade toward it. A no-op (nil error) if
// id is already the target. Returns ErrInvalidMoodTransition, still as
// a no-op, if id is unknown or not in the current recipe's
// AllowedTransitions (when that list is non-empty).
func (m *StateMachine) SetTargetMood(id string) error {
	idx := m.pack.IndexOf(id)
	if idx < 0 {
		return ErrInvalidMoodTransition
	}
	if idx == m.targetIndex {
		return nil
	}
	if !m.Current().AllowsTransition(id) {
		return ErrInvalidMoodTransition
	}
	m.targetIndex = idx
	m.fadeProgress = 0
	return nil
}

// Update advances the crossfade by dt seconds. Once fadeProgress reaches
// 1, currentIndex snaps to targetIndex.
func (m *StateMachine) Update(dt float64) {
	if m.currentIndex == m.targetIndex {
		m.fadeProgress = 1
		return
	}
	m.fadeProgress += dt / m.fadeDuration
	if m.fadeProgress >= 1 {
		m.currentIndex = m.targetIndex
		m.fadeProgress = 1
	}
}
