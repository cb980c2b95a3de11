package story

import (
	"path/filepath"
	"testing"
)

func TestHistoryRoundTripsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stories.db")

	h1, err := OpenHistory(dbPath, nil)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	b1 := NewBank(nil)
	b1.AddStory("s1", "hello", "a.wav", AnyMood, nil)
	h1.LoadInto(b1)

	s := b1.PickStory("focus_room", 1000, 30)
	if s == nil {
		t.Fatal("expected s1 to be eligible before any play")
	}
	b1.MarkPlayed(s, 1000)
	if err := h1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2, err := OpenHistory(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen OpenHistory: %v", err)
	}
	defer h2.Close()
	b2 := NewBank(nil)
	b2.AddStory("s1", "hello", "a.wav", AnyMood, nil)
	h2.LoadInto(b2)

	if got := b2.PickStory("focus_room", 1010, 30); got != nil {
		t.Fatalf("expected s1 still on cooldown after reopening history, got %+v", got)
	}
	if got := b2.PickStory("focus_room", 1030, 30); got == nil {
		t.Fatal("expected s1 eligible again once the persisted cooldown elapses")
	}
}

func TestHistorySeedDoesNotFireOnPlayedHook(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stories.db")
	h, err := OpenHistory(dbPath, nil)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	b := NewBank(nil)
	b.AddStory("s1", "hello", "a.wav", AnyMood, nil)
	b.MarkPlayed(b.stories[0], 5)
	h.record("s1", 5)

	fired := false
	b.onPlayed = func(string, float64) { fired = true }
	h.LoadInto(b)
	if fired {
		t.Fatal("LoadInto must not invoke OnPlayed while seeding from disk")
	}
}

func TestOpenHistoryNilReceiverMethodsAreNoOps(t *testing.T) {
	var h *History
	if err := h.Close(); err != nil {
		t.Fatalf("Close on nil History: %v", err)
	}
	h.LoadInto(NewBank(nil)) // must not panic
}
