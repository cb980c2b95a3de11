// Package story holds the spoken-word insert bank: story metadata,
// mood/cooldown-gated random selection, and playback bookkeeping.
package story

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/samber/lo"

	"github.com/rosswood/keegan/internal/stem"
)

// AnyMood is the sentinel mood id meaning a story may play under any mood.
const AnyMood = "any"

// ErrBankEmptyForMood is wrapped into a debug log by the narrative
// trigger (see internal/engine.updateNarrativeTrigger) whenever
// PickStory has nothing eligible to offer — either no story is scoped
// to the current mood or everything eligible is still on cooldown.
// Not fatal: the trigger just tries again on a later tick.
var ErrBankEmptyForMood = errors.New("story: no story available for mood")

// Story is one spoken-word insert: its text (for transcript/telemetry),
// its pre-loaded audio, which mood it's scoped to, and when it last played.
type Story struct {
	ID            string
	Text          string
	AudioFile     string
	MoodID        string
	Audio         *stem.Stem
	lastPlayedSec float64 // unix seconds; -9999 sentinel means never played
}

func newStory(id, text, audioFile, moodID string, audio *stem.Stem) *Story {
	return &Story{
		ID:            id,
		Text:          text,
		AudioFile:     audioFile,
		MoodID:        moodID,
		Audio:         audio,
		lastPlayedSec: -9999,
	}
}

// Bank is a mutex-guarded collection of stories with mood- and
// cooldown-gated random selection. Safe for concurrent use from the
// control tick thread and external story-submission callers.
type Bank struct {
	mu       sync.Mutex
	stories  []*Story
	rng      *rand.Rand
	onPlayed func(id string, atUnixSec float64)
}

// SetOnPlayed installs a callback invoked (outside the bank's lock)
// every time MarkPlayed records a play. Used by an optional persistence
// layer (see OpenHistory) to durably record cooldown state across
// restarts without the bank needing to know how it's stored.
func (b *Bank) SetOnPlayed(fn func(id string, atUnixSec float64)) {
	b.mu.Lock()
	b.onPlayed = fn
	b.mu.Unlock()
}

// SeedPlayed restores a previously-recorded play timestamp for id,
// without firing OnPlayed. Used at startup to reapply persisted
// cooldown history before the bank starts live selection; a no-op if
// id isn't present (the corresponding story may have been removed from
// the stories config since the timestamp was recorded).
func (b *Bank) SeedPlayed(id string, atUnixSec float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.stories {
		if s.ID == id {
			s.lastPlayedSec = atUnixSec
			return
		}
	}
}

// NewBank returns an empty story bank seeded from a caller-supplied
// source, or from a default unseeded source if rng is nil.
func NewBank(rng *rand.Rand) *Bank {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Bank{rng: rng}
}

// AddStory registers a story, skipping ones with empty text or audio
// file name (mirrors the loader's own validation). Idempotent on id
// collision: the new entry replaces the old one.
func (b *Bank) AddStory(id, text, audioFile, moodID string, audio *stem.Stem) {
	if text == "" || audioFile == "" {
		return
	}
	if moodID == "" {
		moodID = AnyMood
	}
	s := newStory(id, text, audioFile, moodID, audio)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.stories {
		if existing.ID == id {
			b.stories[i] = s
			return
		}
	}
	b.stories = append(b.stories, s)
}

// PickStory returns a random story eligible for currentMoodID at
// currentTimeSec, honoring a per-story cooldown of globalCooldownSec,
// or nil if nothing qualifies.
func (b *Bank) PickStory(currentMoodID string, currentTimeSec, globalCooldownSec float64) *Story {
	b.mu.Lock()
	defer b.mu.Unlock()

	candidates := lo.Filter(b.stories, func(s *Story, _ int) bool {
		if s.MoodID != AnyMood && s.MoodID != currentMoodID {
			return false
		}
		return currentTimeSec-s.lastPlayedSec >= globalCooldownSec
	})
	if len(candidates) == 0 {
		return nil
	}
	return candidates[b.rng.Intn(len(candidates))]
}

// MarkPlayed stamps s as played at currentTimeSec. A nil story is a no-op.
func (b *Bank) MarkPlayed(s *Story, currentTimeSec float64) {
	if s == nil {
		return
	}
	b.mu.Lock()
	s.lastPlayedSec = currentTimeSec
	onPlayed := b.onPlayed
	id := s.ID
	b.mu.Unlock()

	if onPlayed != nil {
		onPlayed(id, currentTimeSec)
	}
}

// CountForMood reports how many stories are eligible for moodID
// (those scoped to it plus any scoped to AnyMood), ignoring cooldown.
func (b *Bank) CountForMood(moodID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.CountBy(b.stories, func(s *Story) bool {
		return s.MoodID == AnyMood || s.MoodID == moodID
	})
}

// Len reports the total number of stories in the bank.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stories)
}
