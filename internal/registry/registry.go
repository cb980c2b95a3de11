// Package registry announces this engine's identity to an external
// station registry: a fire-and-forget heartbeat, never allowed to block
// or crash the engine. Grounded on internal/webhook/webhook.go's
// POST-with-headers idiom, repointed at a JSON heartbeat body.
package registry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rosswood/keegan/internal/httputil"
)

// Station identifies this running engine to the registry, sourced from
// KEEGAN_STATION_{NAME,REGION,DESCRIPTION,FREQUENCY} per spec.md §6.
type Station struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

// Client sends periodic heartbeats to a configured registry URL,
// authenticated with KEEGAN_REGISTRY_KEY.
type Client struct {
	url     string
	apiKey  string
	station Station
	logger  *slog.Logger
}

// New builds a Client. station.ID is generated if empty, so a station's
// identity is stable for this process's lifetime even across repeated
// heartbeats. An empty url means Heartbeat is a no-op.
func New(url, apiKey string, station Station, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if station.ID == "" {
		station.ID = uuid.NewString()
	}
	return &Client{url: url, apiKey: apiKey, station: station, logger: logger}
}

// Heartbeat posts the station's identity to the registry. Logged and
// swallowed on failure — a registry outage must never affect playback.
func (c *Client) Heartbeat() {
	if c.url == "" {
		return
	}
	payload, err := json.Marshal(c.station)
	if err != nil {
		c.logger.Warn("registry: marshaling heartbeat", "err", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn("registry: building heartbeat request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := httputil.Client.Do(req)
	if err != nil {
		c.logger.Warn("registry: heartbeat request failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "registry heartbeat"); err != nil {
		c.logger.Warn("registry: heartbeat rejected", "err", err)
	}
}

// Run sends a heartbeat immediately and then every interval until stop
// is closed. Intended to run in its own goroutine from cmd/vibed.
func (c *Client) Run(interval time.Duration, stop <-chan struct{}) {
	c.Heartbeat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Heartbeat()
		}
	}
}
