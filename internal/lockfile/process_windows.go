//go:build windows

package lockfile

import (
	"os"
)

// isProcessRunning checks if a process with the given PID is running.
// On Windows, FindProcess fails for pids that do not exist.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer proc.Release()
	return true
}
