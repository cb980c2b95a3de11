// Package storygen implements internal/engine.StoryGenerator: a
// fire-and-forget HTTP client that asks a remote service for a new
// spoken-word insert ("story") for a mood, synthesizes the returned
// text to speech via internal/voice, and drops the finished story into
// an internal/story.Bank, where the engine's narrative trigger can pick
// it.
//
// Grounded on internal/voice/voice.go's Generate: a JSON POST through
// httputil.Client, reading an error snippet via httputil.ReadSnippet on
// a non-2xx. RequestStory must never block the control tick, so each
// request runs on its own goroutine; golang.org/x/sync/singleflight
// collapses concurrent requests for the same mood into one in-flight
// call, matching spec.md §5 step 6's "dedup single-flight" requirement.
package storygen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rosswood/keegan/internal/httputil"
	"github.com/rosswood/keegan/internal/stem"
	"github.com/rosswood/keegan/internal/story"
	"github.com/rosswood/keegan/internal/voice"
)

// remoteRequestTimeout bounds the remote story generation call, per
// spec.md §5's "remote client applying its own timeout" requirement.
const remoteRequestTimeout = 10 * time.Second

// ErrGenerationFailed wraps any non-2xx response from the remote story
// endpoint, so a caller watching RequestStory's logs via errors.Is can
// tell a rejected/erroring remote call apart from a local marshaling or
// transport failure.
var ErrGenerationFailed = errors.New("storygen: remote generation failed")

// requestBody is the JSON payload sent to the remote story generator.
type requestBody struct {
	MoodID  string `json:"moodId"`
	Context string `json:"context"`
}

// responseBody is the remote service's reply: the generated line of
// narration, plus a stable ID so repeats can be recognized.
type responseBody struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// VoiceConfig selects the TTS voice used to synthesize generated text,
// sourced from the same collaborator as the teacher's notification
// speech step.
type VoiceConfig struct {
	APIKey string
	Model  string
	Voice  string
	Speed  float64
}

// Generator requests new stories from a remote endpoint and writes the
// synthesized result into bank. A zero-value URL makes RequestStory a
// no-op, matching the "excluded surface" default of a no-op collaborator.
type Generator struct {
	url    string
	apiKey string
	voice  VoiceConfig
	bank   *story.Bank
	cache  *voice.Cache
	logger *slog.Logger

	group singleflight.Group
}

// Config configures a Generator.
type Config struct {
	URL    string // KEEGAN_STREAM_URL
	APIKey string
	Voice  VoiceConfig
	Logger *slog.Logger
}

// New builds a Generator and opens the voice cache at its default
// directory for synthesized audio; a failure to open it disables TTS
// synthesis for this Generator's lifetime (stories are still requested,
// just never added to the bank).
func New(bank *story.Bank, cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, err := voice.OpenCache()
	if err != nil {
		logger.Warn("storygen: opening voice cache, narration disabled", "err", err)
		cache = nil
	}
	return &Generator{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		voice:  cfg.Voice,
		bank:   bank,
		cache:  cache,
		logger: logger,
	}
}

// RequestStory implements internal/engine.StoryGenerator. It returns
// immediately; the remote call, TTS synthesis, and bank insertion all
// happen on a background goroutine. Concurrent calls for the same
// moodID while one is already in flight are collapsed into the single
// outstanding request.
func (g *Generator) RequestStory(moodID, moodContext string) {
	if g.url == "" {
		return
	}
	go func() {
		_, _, _ = g.group.Do(moodID, func() (any, error) {
			g.fetchAndSynthesize(moodID, moodContext)
			return nil, nil
		})
	}()
}

// Poll implements internal/engine.StoryGenerator. Insertion into the
// bank already happens inline on the background goroutine above, so
// there is nothing queued to drain here; Poll exists to satisfy the
// interface and leaves room for a future buffered-completion design.
func (g *Generator) Poll() {}

func (g *Generator) fetchAndSynthesize(moodID, moodContext string) {
	text, id, err := g.requestText(moodID, moodContext)
	if err != nil {
		g.logger.Warn("storygen: requesting story", "mood", moodID, "err", err)
		return
	}
	if text == "" {
		return
	}

	if g.cache == nil {
		return
	}

	wavPath, ok := g.cache.Lookup(text)
	if !ok {
		wavData, err := voice.Generate(g.voice.APIKey, g.voice.Model, g.voice.Voice, text, g.voice.Speed)
		if err != nil {
			g.logger.Warn("storygen: synthesizing narration", "mood", moodID, "err", err)
			return
		}
		if err := g.cache.Add(text, g.voice.Voice, wavData); err != nil {
			g.logger.Warn("storygen: caching narration", "mood", moodID, "err", err)
			return
		}
		wavPath, _ = g.cache.Lookup(text)
	}

	audio, err := stem.Load(wavPath, 0, false)
	if err != nil {
		g.logger.Warn("storygen: loading synthesized narration", "mood", moodID, "err", err)
		return
	}

	if id == "" {
		id = voice.TextHash(text)
	}
	g.bank.AddStory(id, text, wavPath, moodID, audio)
}

func (g *Generator) requestText(moodID, moodContext string) (text, id string, err error) {
	payload, err := json.Marshal(requestBody{MoodID: moodID, Context: moodContext})
	if err != nil {
		return "", "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteRequestTimeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := httputil.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("story generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := httputil.ReadSnippet(resp.Body)
		return "", "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, snippet)
	}

	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decoding response: %w", err)
	}
	return body.Text, body.ID, nil
}
