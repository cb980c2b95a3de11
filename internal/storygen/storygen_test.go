package storygen

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rosswood/keegan/internal/story"
)

func TestRequestStoryNoOpWithEmptyURL(t *testing.T) {
	g := New(story.NewBank(nil), Config{})
	g.RequestStory("rain_cave", "raining, idle") // must not panic or block
}

func TestRequestStoryCallsRemoteEndpoint(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var body requestBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.MoodID != "rain_cave" {
			t.Errorf("moodId = %q, want rain_cave", body.MoodID)
		}
		// Text generation succeeds but no voice API key is configured, so
		// synthesis will fail and nothing lands in the bank; this test only
		// asserts the remote call itself happens and is well-formed.
		json.NewEncoder(w).Encode(responseBody{ID: "s1", Text: "rain taps the window"})
	}))
	defer srv.Close()

	bank := story.NewBank(nil)
	g := New(bank, Config{URL: srv.URL})
	g.RequestStory("rain_cave", "raining, idle")

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&hits) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&hits) == 0 {
		t.Fatal("remote endpoint was never called")
	}
}

func TestRequestStoryDedupsConcurrentCallsPerMood(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		json.NewEncoder(w).Encode(responseBody{ID: "s1", Text: "same story"})
	}))
	defer srv.Close()

	bank := story.NewBank(nil)
	g := New(bank, Config{URL: srv.URL})

	g.RequestStory("rain_cave", "a")
	g.RequestStory("rain_cave", "b")
	g.RequestStory("rain_cave", "c")

	time.Sleep(50 * time.Millisecond)
	close(release)
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("remote hits = %d, want 1 (singleflight should dedup same-mood requests)", got)
	}
}

func TestRequestTextReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("broker unavailable"))
	}))
	defer srv.Close()

	g := &Generator{url: srv.URL}
	_, _, err := g.requestText("rain_cave", "ctx")
	if err == nil {
		t.Fatal("expected an error on a 500 response")
	}
}
