//go:build windows

package tools

import "os"

// FindProcess opens a handle on Windows and fails once the process is gone.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
