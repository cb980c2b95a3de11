// Package httpapi is the control-plane HTTP + WebSocket server: the
// external surface that a tray UI or web UI uses to read engine state
// and issue mood/playback commands. Grounded on
// internal/dashboard/dashboard.go's mux.HandleFunc/json.NewEncoder
// idiom, narrowed to spec.md §6's exact endpoint contract and widened
// with bearer/X-Api-Key auth and a WebSocket state push.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/mood"
)

// Engine is the subset of internal/engine.Engine the control surface
// touches — the full *engine.Engine satisfies it directly.
type Engine interface {
	Snapshot() engine.PublicState
	SetMood(id string) error
	TogglePlaying() bool
}

// vibeResponse is GET /api/vibe's subset per spec.md §6.
type vibeResponse struct {
	Mood       string  `json:"mood"`
	Energy     float64 `json:"energy"`
	Activity   float64 `json:"activity"`
	Intensity  float64 `json:"intensity"`
	TimeOfDay  float64 `json:"timeOfDay"`
}

// moodRequest is POST /api/mood's body per spec.md §6.
type moodRequest struct {
	Mood string `json:"mood"`
}

// Server wires Engine onto the canonical endpoint set and an optional
// WebSocket state push.
type Server struct {
	engine   Engine
	apiKey   string
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// Config parameterizes a Server. APIKey, when non-empty, is required
// (via "Authorization: Bearer <key>" or "X-Api-Key: <key>") on every
// mutating endpoint; GET endpoints are never gated.
type Config struct {
	APIKey string
	Logger *slog.Logger
}

// New builds a Server and its http.Handler. Call Handler to obtain the
// mux for http.ListenAndServe; it also serves the sibling WebSocket
// path at /ws.
func New(engine Engine, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		engine: engine,
		apiKey: cfg.APIKey,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the mux implementing spec.md §6's endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/mood", s.requireAuth(s.handleMood))
	mux.HandleFunc("/api/toggle", s.requireAuth(s.handleToggle))
	mux.HandleFunc("/api/vibe", s.handleVibe)
	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next(w, r)
			return
		}
		if key := apiKeyFromRequest(r); key == s.apiKey {
			next(w, r)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Api-Key")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Snapshot())
}

func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mood == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "mood is required"})
		return
	}
	if err := s.engine.SetMood(req.Mood); err != nil {
		if errors.Is(err, mood.ErrInvalidMoodTransition) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_mood_transition"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal_error"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.engine.TogglePlaying()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Snapshot())
}

func (s *Server) handleVibe(w http.ResponseWriter, r *http.Request) {
	state := s.engine.Snapshot()
	now := time.Now()
	timeOfDay := (float64(now.Hour())*3600 + float64(now.Minute())*60 + float64(now.Second())) / 86400.0

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vibeResponse{
		Mood:      state.MoodID,
		Energy:    state.Energy,
		Activity:  state.Activity,
		Intensity: state.Intensity,
		TimeOfDay: timeOfDay,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWS upgrades the connection and pushes the same JSON as
// /api/state every ~500ms until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("httpapi: websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.drainClientReads(ctx, conn, cancel)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.engine.Snapshot()); err != nil {
				return
			}
		}
	}
}

// drainClientReads discards anything the client sends and cancels ctx
// once the connection closes, so handleWS's write loop exits promptly.
func (s *Server) drainClientReads(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
