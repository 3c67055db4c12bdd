//go:build windows

package fs

import "os"

// processAlive relies on FindProcess, which opens a handle on Windows and
// fails for a pid that no longer exists.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}
