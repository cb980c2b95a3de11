package foreground

import (
	"fmt"
	"os/exec"
	"strings"
)

// ActiveProcess returns the name of the frontmost application on macOS,
// queried via osascript/System Events — the same AppleScript-bridge
// idiom the rest of the per-OS pack uses for anything Apple doesn't
// expose through a plain syscall.
func ActiveProcess() (string, error) {
	const script = `tell application "System Events" to get name of first application process whose frontmost is true`
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
