package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/mood"
)

type fakeEngine struct {
	state    engine.PublicState
	moodSet  string
	moodErr  error
	playing  bool
	toggled  int
}

func (f *fakeEngine) Snapshot() engine.PublicState { return f.state }
func (f *fakeEngine) SetMood(id string) error {
	if f.moodErr != nil {
		return f.moodErr
	}
	f.moodSet = id
	return nil
}
func (f *fakeEngine) TogglePlaying() bool {
	f.toggled++
	f.playing = !f.playing
	return f.playing
}

func newTestServer() (*Server, *fakeEngine) {
	fe := &fakeEngine{state: engine.PublicState{MoodID: "focus_room", Energy: 0.5, Activity: 0.2, Intensity: 0.7}}
	return New(fe, Config{APIKey: "secret"}), fe
}

func TestHandleStateReturnsSnapshot(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got engine.PublicState
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MoodID != "focus_room" {
		t.Fatalf("moodId = %q, want focus_room", got.MoodID)
	}
}

func TestHandleHealthAlwaysUnauthenticated(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleMoodRequiresAPIKey(t *testing.T) {
	s, _ := newTestServer()
	body := `{"mood":"rain_cave"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without api key", w.Code)
	}
}

func TestHandleMoodSucceedsWithBearerToken(t *testing.T) {
	s, fe := newTestServer()
	body := `{"mood":"rain_cave"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if fe.moodSet != "rain_cave" {
		t.Fatalf("moodSet = %q, want rain_cave", fe.moodSet)
	}
}

func TestHandleMoodSucceedsWithXApiKeyHeader(t *testing.T) {
	s, fe := newTestServer()
	body := `{"mood":"sleep_ship"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(body))
	req.Header.Set("X-Api-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if fe.moodSet != "sleep_ship" {
		t.Fatalf("moodSet = %q, want sleep_ship", fe.moodSet)
	}
}

func TestHandleMoodRejectsWrongKey(t *testing.T) {
	s, _ := newTestServer()
	body := `{"mood":"rain_cave"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(body))
	req.Header.Set("X-Api-Key", "wrong")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHandleMoodMapsInvalidTransitionTo409(t *testing.T) {
	s, fe := newTestServer()
	fe.moodErr = mood.ErrInvalidMoodTransition
	body := `{"mood":"sleep_ship"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(body))
	req.Header.Set("X-Api-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 on rejected mood transition", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["error"] != "invalid_mood_transition" {
		t.Fatalf("error = %q, want invalid_mood_transition", got["error"])
	}
}

func TestHandleMoodRejectsMissingMood(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(`{}`))
	req.Header.Set("X-Api-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleToggleFlipsPlaying(t *testing.T) {
	s, fe := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/toggle", nil)
	req.Header.Set("X-Api-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if fe.toggled != 1 {
		t.Fatalf("toggled = %d, want 1", fe.toggled)
	}
}

func TestHandleVibeReturnsSubset(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/vibe", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var got vibeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mood != "focus_room" || got.Energy != 0.5 || got.Activity != 0.2 || got.Intensity != 0.7 {
		t.Fatalf("got %+v", got)
	}
	if got.TimeOfDay < 0 || got.TimeOfDay >= 1 {
		t.Fatalf("timeOfDay = %v, want in [0,1)", got.TimeOfDay)
	}
}

func TestNoAPIKeyConfiguredAllowsMutatingEndpoints(t *testing.T) {
	fe := &fakeEngine{state: engine.PublicState{MoodID: "focus_room"}}
	s := New(fe, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/toggle", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when no api key configured", w.Code)
	}
}
