package foreground

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	pGetForegroundWindow     = user32.NewProc("GetForegroundWindow")
	pGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
)

// ActiveProcess returns the executable name (without path) owning the
// currently focused window on Windows, via GetForegroundWindow +
// GetWindowThreadProcessId + QueryFullProcessImageName.
func ActiveProcess() (string, error) {
	hwnd, _, _ := pGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", fmt.Errorf("GetForegroundWindow: no foreground window")
	}

	var pid uint32
	pGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return "", fmt.Errorf("GetWindowThreadProcessId: no owning process")
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName: %w", err)
	}

	full := windows.UTF16ToString(buf[:size])
	return strings.ToLower(filepath.Base(full)), nil
}
