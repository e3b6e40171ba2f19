// Package probes provides the host environment probes consumed by the
// condition evaluator. The engine itself has no filesystem or process
// knowledge; these live at the boundary and are wired in by the caller.
package probes

import (
	"os"
	"os/exec"
	"strings"
)

// OS probes the local machine directly.
type OS struct{}

// FileExists reports whether the given path exists.
func (OS) FileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// AppRunning reports whether a process whose name matches is currently
// running, using pgrep. Any failure (no match, pgrep missing) reports
// false.
func (OS) AppRunning(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	err := exec.Command("pgrep", "-f", name).Run()

	return err == nil
}
