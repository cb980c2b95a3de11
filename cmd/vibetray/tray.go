package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime"

	"github.com/energye/systray"

	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/mood"
)

// trayIconPNG is a minimal 1x1 transparent PNG. The corpus this tray is
// grounded on embeds a real icon asset via go:embed; none ships with
// this module, so the icon is a tiny literal instead of a missing file.
var trayIconPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// runTray starts the system tray icon and blocks until Quit. Must be
// called from main's own goroutine (not a spawned one) on Windows,
// where the hidden window systray creates must share the thread that
// pumps its message loop.
func runTray(eng *engine.Engine, pack mood.Pack, dashboardURL string) {
	runtime.LockOSThread()
	systray.Run(func() { onTrayReady(eng, pack, dashboardURL) }, func() {})
}

func onTrayReady(eng *engine.Engine, pack mood.Pack, dashboardURL string) {
	systray.SetIcon(iconForPlatform())
	systray.SetTooltip("keegan")

	mDashboard := systray.AddMenuItem("Open Dashboard", "Open the vibe radio dashboard")
	mDashboard.Click(func() { openBrowser(dashboardURL) })

	mToggle := systray.AddMenuItem("Pause/Resume", "Toggle playback")
	mToggle.Click(func() { eng.TogglePlaying() })

	systray.AddSeparator()

	mMood := systray.AddMenuItem("Mood", "Switch the current mood")
	for _, m := range pack.Moods {
		id := m.ID
		item := mMood.AddSubMenuItem(m.DisplayName, fmt.Sprintf("Switch to %s", id))
		item.Click(func() { eng.SetMood(id) })
	}

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit", "Exit vibetray")
	mQuit.Click(func() {
		systray.Quit()
		os.Exit(0)
	})
}

// iconForPlatform wraps the PNG in a minimal ICO container on Windows,
// where systray's backing LoadImage call requires ICO format (ICO has
// supported embedded PNG payloads since Vista).
func iconForPlatform() []byte {
	if runtime.GOOS != "windows" {
		return trayIconPNG
	}
	return pngToICO(trayIconPNG)
}

func pngToICO(png []byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint16(0))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))

	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(32))
	binary.Write(buf, binary.LittleEndian, uint32(len(png)))
	binary.Write(buf, binary.LittleEndian, uint32(6+1*16))

	buf.Write(png)
	return buf.Bytes()
}
