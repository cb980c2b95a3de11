package telemetry

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rosswood/keegan/internal/engine"
)

func TestDisabledSinkIsNoOp(t *testing.T) {
	s := New(Config{})
	s.Publish(engine.PublicState{MoodID: "focus_room"}, 0.1)
	s.Close() // must not block or panic
}

func TestFileSinkAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.jsonl")

	s := New(Config{Enabled: true, FilePath: path})
	s.Publish(engine.PublicState{MoodID: "rain_cave"}, 0.25)
	s.Publish(engine.PublicState{MoodID: "rain_cave"}, 0.30)
	s.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening telemetry file: %v", err)
	}
	defer f.Close()

	var lines []Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var sample Sample
		if err := json.Unmarshal(scanner.Bytes(), &sample); err != nil {
			t.Fatalf("decoding line: %v", err)
		}
		lines = append(lines, sample)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0].State.MoodID != "rain_cave" || lines[0].BlockRMS != 0.25 {
		t.Errorf("lines[0] = %+v", lines[0])
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	// No consumer running (Enabled: false would close done immediately,
	// so build a Sink by hand with a tiny unbuffered-effective channel).
	s := &Sink{samples: make(chan Sample), done: make(chan struct{}), logger: slog.New(slog.DiscardHandler)}
	// done never closes and nothing drains samples: Publish must not block.
	done := make(chan struct{})
	go func() {
		s.Publish(engine.PublicState{}, 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full channel")
	}
}
