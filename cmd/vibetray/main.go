// Command vibetray is a tray-only shell around the vibe radio engine:
// it runs the same audio pipeline as vibed but surfaces control through
// a system tray icon instead of (or alongside) the HTTP control plane,
// opening the web dashboard in the user's ordinary browser rather than
// an embedded webview. Grounded on cmd/notify-app/main.go's startup
// style and cmd/notify-app/tray.go's menu layout.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pkg/browser"

	"github.com/rosswood/keegan/internal/audiodevice"
	"github.com/rosswood/keegan/internal/config"
	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/foreground"
	"github.com/rosswood/keegan/internal/httpapi"
	"github.com/rosswood/keegan/internal/idle"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pack, err := config.LoadMoodPack(envOr("KEEGAN_MOOD_CONFIG", ""), logger)
	if err != nil {
		logger.Warn("vibetray: falling back to default mood pack", "err", err)
	}

	eng := engine.New(0, 0, pack, engine.WithLogger(logger))
	eng.SetPlaying(true)

	dev, err := audiodevice.Open(eng, audiodevice.Config{Logger: logger})
	if err != nil {
		logger.Error("vibetray: audio init failed", "err", err)
		os.Exit(1)
	}
	defer dev.Close()

	port := envOr("KEEGAN_PORT", "7777")
	if _, err := strconv.Atoi(port); err != nil {
		logger.Error("vibetray: KEEGAN_PORT must be numeric", "value", port)
		os.Exit(1)
	}
	addr := "127.0.0.1:" + port

	srv := httpapi.New(eng, httpapi.Config{
		APIKey: envOr("KEEGAN_BRIDGE_KEY", ""),
		Logger: logger,
	})
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("vibetray: http server failed", "err", err)
		}
	}()

	go runTickLoop(eng, logger)

	runTray(eng, pack, "http://"+addr)
}

func runTickLoop(eng *engine.Engine, logger *slog.Logger) {
	const tickInterval = 100 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	lastProc := ""
	for range ticker.C {
		proc, err := foreground.ActiveProcess()
		if err != nil {
			proc = lastProc
		}
		lastProc = proc
		idleSec, err := idle.IdleSeconds()
		if err != nil {
			idleSec = 0
		}
		eng.Tick(proc, idleSec, tickInterval.Seconds())
	}
}

func openBrowser(url string) {
	browser.OpenURL(url)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
