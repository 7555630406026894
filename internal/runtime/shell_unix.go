//go:build !windows

package runtime

import (
	"os"
	"os/exec"
)

// defaultShell is the interpreter reaction scripts are written against.
const defaultShell = "/bin/bash"

// detect resolves the shell on Unix-like systems.
//
// Preference order:
//   - /bin/bash
//   - bash found on PATH (NixOS, some BSDs)
//   - /bin/sh, which POSIX guarantees
func detect() Platform {
	p := Platform{POSIXShell: true, Shell: "/bin/sh"}
	if fi, err := os.Stat(defaultShell); err == nil && !fi.IsDir() {
		p.Shell = defaultShell
		return p
	}
	if path, err := exec.LookPath("bash"); err == nil {
		p.Shell = path
	}
	return p
}
