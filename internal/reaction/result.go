package reaction

// Kind classifies how a reaction invocation ended.
type Kind int

const (
	// KindOK means the script ran and was waited on. The child's exit
	// status does not change the kind.
	KindOK Kind = iota
	// KindSkipped means the script was blank and nothing was run.
	KindSkipped
	// KindUnsupportedPlatform means the host has no POSIX shell.
	KindUnsupportedPlatform
	// KindIO means preparing, spawning or reading the child failed.
	KindIO
	// KindInterrupted means waiting for the child failed for a reason other
	// than the child exiting.
	KindInterrupted
)

var kindNames = [...]string{
	KindOK:                  "ok",
	KindSkipped:             "skipped",
	KindUnsupportedPlatform: "unsupported_platform",
	KindIO:                  "io_failure",
	KindInterrupted:         "interrupted",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Result is the outcome of one reaction invocation.
type Result struct {
	// Invocation identifies this call in operator logs.
	Invocation string

	Kind Kind
	Err  error // set for KindIO and KindInterrupted

	// ExitCode is the child's exit status, or -1 when no child was waited on
	// or it was killed by a signal. It is informational only.
	ExitCode int

	// ScriptPath is the temporary file the script was materialized to. It no
	// longer exists by the time the Result is returned.
	ScriptPath string
}

// OK reports whether the invocation counts as a success for the caller.
func (r Result) OK() bool {
	return r.Kind == KindOK || r.Kind == KindSkipped
}
