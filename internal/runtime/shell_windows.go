//go:build windows

package runtime

// detect reports that Windows hosts cannot run reaction scripts.
//
// Reaction scripts are POSIX shell scripts; cmd.exe and PowerShell do not
// accept them, so no interpreter is offered here.
func detect() Platform {
	return Platform{POSIXShell: false}
}
