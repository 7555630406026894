// Package runtime describes what the host platform can execute.
//
// The platform capability is resolved once per process by Detect and then
// passed around as a plain value. Callers never re-inspect the operating
// system per invocation.
//
// The platform-specific half lives in shell_unix.go and shell_windows.go,
// selected by build constraints.
package runtime

import (
	goruntime "runtime"
	"sync"
)

// Platform is the resolved shell capability of the current host.
type Platform struct {
	OS         string // GOOS the capability was resolved for
	POSIXShell bool   // whether reaction scripts can run here at all
	Shell      string // interpreter invoked as "<Shell> <script-file>"
}

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the capability of the running host.
//
// The result is computed on first use and cached; every later call returns
// the same value.
func Detect() Platform {
	detectOnce.Do(func() {
		detected = detect()
		detected.OS = goruntime.GOOS
	})
	return detected
}

// WithShell returns a copy of p using the given interpreter.
// An empty path keeps the detected interpreter.
func (p Platform) WithShell(path string) Platform {
	if path != "" {
		p.Shell = path
	}
	return p
}

// Unsupported returns a platform value with shell execution disabled.
func Unsupported(goos string) Platform {
	return Platform{OS: goos}
}
