package foreground

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ActiveProcess returns the executable name (without path) owning the
// currently focused window on Linux, using xdotool to resolve the
// active window's PID and /proc to resolve the PID's executable.
func ActiveProcess() (string, error) {
	out, err := exec.Command("xdotool", "getactivewindow", "getwindowpid").Output()
	if err != nil {
		return "", fmt.Errorf("xdotool: %w (is xdotool installed?)", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return "", fmt.Errorf("parsing xdotool pid: %w", err)
	}

	exePath, err := os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
	if err != nil {
		return "", fmt.Errorf("reading /proc/%d/exe: %w", pid, err)
	}
	return filepath.Base(exePath), nil
}
