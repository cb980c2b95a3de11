// Command vibed is the headless vibe radio daemon: it loads the mood
// and stories config, starts the realtime audio engine, exposes the
// HTTP/WebSocket control surface, and wires the optional registry and
// telemetry collaborators, all driven from KEEGAN_* environment
// variables (see spec.md §6). Grounded on cmd/notify/main.go's
// flag-then-env startup style, generalized from a one-shot CLI action
// into a long-running daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rosswood/keegan/internal/audiodevice"
	"github.com/rosswood/keegan/internal/config"
	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/foreground"
	"github.com/rosswood/keegan/internal/httpapi"
	"github.com/rosswood/keegan/internal/idle"
	"github.com/rosswood/keegan/internal/paths"
	"github.com/rosswood/keegan/internal/registry"
	"github.com/rosswood/keegan/internal/story"
	"github.com/rosswood/keegan/internal/storygen"
	"github.com/rosswood/keegan/internal/telemetry"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "version" || args[0] == "-V" || args[0] == "--version") {
		fmt.Printf("vibed %s (%s)\n", version, buildDate)
		return
	}

	pack, err := config.LoadMoodPack(envOr("KEEGAN_MOOD_CONFIG", ""), logger)
	if err != nil {
		logger.Warn("vibed: falling back to default mood pack", "err", err)
	}

	bank := story.NewBank(nil)
	storiesPath := envOr("KEEGAN_STORIES_CONFIG", "")
	if storiesPath != "" {
		if err := story.LoadFromFile(bank, storiesPath, envOr("KEEGAN_AUDIO_DIR", ""), logger); err != nil {
			logger.Warn("vibed: loading stories config", "err", err)
		}
	}

	historyPath := envOr("KEEGAN_STORY_HISTORY", filepath.Join(paths.DataDir(), "stories.db"))
	if history, err := story.OpenHistory(historyPath, logger); err != nil {
		logger.Warn("vibed: story history unavailable, cooldowns won't survive a restart", "err", err)
	} else {
		defer history.Close()
		history.LoadInto(bank)
	}

	gen := storygen.New(bank, storygen.Config{
		URL:    envOr("KEEGAN_STREAM_URL", ""),
		APIKey: envOr("KEEGAN_REGISTRY_KEY", ""),
		Voice: storygen.VoiceConfig{
			APIKey: envOr("OPENAI_API_KEY", ""),
			Model:  envOr("KEEGAN_VOICE_MODEL", "tts-1"),
			Voice:  envOr("KEEGAN_VOICE", "alloy"),
		},
		Logger: logger,
	})

	telemetrySink := telemetry.New(telemetry.Config{
		Enabled: envBool("KEEGAN_TELEMETRY"),
		MQTT: telemetry.MQTTConfig{
			Broker:   envOr("KEEGAN_MQTT_BROKER", ""),
			ClientID: envOr("KEEGAN_STATION_NAME", "vibed"),
			Topic:    envOr("KEEGAN_MQTT_TOPIC", "keegan/telemetry"),
			Username: envOr("KEEGAN_MQTT_USERNAME", ""),
			Password: envOr("KEEGAN_BROADCAST_SECRET", ""),
		},
		FilePath: envOr("KEEGAN_TELEMETRY_FILE", ""),
		Logger:   logger,
	})
	defer telemetrySink.Close()

	eng := engine.New(0, 0, pack,
		engine.WithLogger(logger),
		engine.WithStoryGenerator(gen),
		engine.WithStoryBank(bank),
		engine.WithTelemetry(telemetrySink),
	)
	eng.SetPlaying(true)

	dev, err := audiodevice.Open(eng, audiodevice.Config{Logger: logger})
	if err != nil {
		logger.Error("vibed: audio init failed", "err", err)
		os.Exit(1)
	}
	defer dev.Close()

	stationClient := registry.New(
		envOr("KEEGAN_REGISTRY_URL", ""),
		envOr("KEEGAN_REGISTRY_KEY", ""),
		registry.Station{
			Name:        envOr("KEEGAN_STATION_NAME", ""),
			Region:      envOr("KEEGAN_STATION_REGION", ""),
			Description: envOr("KEEGAN_STATION_DESCRIPTION", ""),
			Frequency:   envOr("KEEGAN_STATION_FREQUENCY", ""),
		},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registryStop := make(chan struct{})
	go stationClient.Run(60*time.Second, registryStop)
	defer close(registryStop)

	go runControlLoop(ctx, eng, logger)

	port := envOr("KEEGAN_PORT", "7777")
	if _, err := strconv.Atoi(port); err != nil {
		logger.Error("vibed: KEEGAN_PORT must be numeric", "value", port)
		os.Exit(1)
	}

	srv := httpapi.New(eng, httpapi.Config{
		APIKey: envOr("KEEGAN_BRIDGE_KEY", ""),
		Logger: logger,
	})
	httpServer := &http.Server{
		Addr:    "127.0.0.1:" + port,
		Handler: srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		httpServer.Shutdown(shutCtx)
	}()

	logger.Info("vibed: listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("vibed: http server failed", "err", err)
		os.Exit(1)
	}
}

// runControlLoop drives Engine.Tick at a fixed ~100 ms cadence, feeding
// it the best-effort foreground process name and idle duration (both
// fail-open to zero-value on error, same policy as the teacher's AFK
// detection).
func runControlLoop(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	const tickInterval = 100 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			proc, err := foreground.ActiveProcess()
			if err != nil {
				proc = ""
			}
			idleSec, err := idle.IdleSeconds()
			if err != nil {
				idleSec = 0
			}
			eng.Tick(proc, idleSec, dt)
		}
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

