// Package reaction runs user-supplied shell scripts in response to a build
// exceeding its time limit.
//
// A Runner materializes the script to a private temporary file, executes it
// with the platform's POSIX shell, relays the child's combined stdout and
// stderr to a caller-supplied log sink line by line, and removes the file
// before returning. Every failure is absorbed into a Result; nothing is
// returned as an error.
package reaction

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jprybylski/reaction/internal/runtime"
)

// Lines written to the build log sink.
const (
	msgSkip        = "no valid script found, skipping"
	msgUnsupported = "timeout reaction shell scripts are not supported on %s"
	msgExecuting   = "executing timeout reaction script %d seconds after the build started"
	msgIOFailure   = "error while trying to execute timeout reaction script: %v"
)

// scriptPattern names the temporary script files; "*" is replaced with a
// random string by os.CreateTemp.
const scriptPattern = "reaction*.sh"

// Runner executes reaction scripts. A Runner is not modified by Run, so one
// value may serve concurrent invocations.
type Runner struct {
	Platform runtime.Platform
	TempDir  string // empty means os.TempDir()
	Logger   zerolog.Logger
}

// New returns a Runner for the detected host platform with logging disabled.
func New() *Runner {
	return &Runner{Platform: runtime.Detect(), Logger: zerolog.Nop()}
}

// Run executes script and reports whether the reaction succeeded.
//
// elapsed is the time since the monitored build started; it is only shown in
// the log.
func (r *Runner) Run(script string, log io.Writer, elapsed time.Duration) bool {
	return r.Execute(script, log, elapsed).OK()
}

// Execute is Run with the full Result.
func (r *Runner) Execute(script string, log io.Writer, elapsed time.Duration) Result {
	id := uuid.NewString()
	sink := lineSink{w: log, log: r.Logger.With().Str("invocation", id).Logger()}

	if strings.TrimSpace(script) == "" {
		sink.println(msgSkip)
		return Result{Invocation: id, Kind: KindSkipped, ExitCode: -1}
	}
	if !r.Platform.POSIXShell {
		sink.println(fmt.Sprintf(msgUnsupported, r.Platform.OS))
		return Result{Invocation: id, Kind: KindUnsupportedPlatform, ExitCode: -1}
	}

	sink.println(fmt.Sprintf(msgExecuting, int64(elapsed/time.Second)))
	res := r.execute(script, sink)
	res.Invocation = id
	switch res.Kind {
	case KindIO:
		sink.println(fmt.Sprintf(msgIOFailure, res.Err))
	case KindInterrupted:
		sink.println(res.Err.Error())
	}

	sink.log.Info().
		Str("kind", res.Kind.String()).
		Int("exit_code", res.ExitCode).
		Str("script", res.ScriptPath).
		Msg("reaction finished")
	return res
}

func (r *Runner) execute(script string, sink lineSink) (res Result) {
	res.ExitCode = -1

	path, err := writeScript(r.TempDir, script)
	if err != nil {
		res.Kind, res.Err = KindIO, err
		return res
	}
	res.ScriptPath = path
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sink.log.Warn().Err(err).Str("script", path).Msg("remove reaction script")
		}
	}()

	// stdout and stderr share one pipe so the child's writes reach us in the
	// order it made them.
	pr, pw, err := os.Pipe()
	if err != nil {
		res.Kind, res.Err = KindIO, err
		return res
	}
	defer pr.Close()

	cmd := exec.Command(r.Platform.Shell, path)
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		res.Kind, res.Err = KindIO, err
		return res
	}
	// The child holds its own copy; EOF arrives once every writer has exited.
	pw.Close()
	sink.log.Debug().Int("pid", cmd.Process.Pid).Str("shell", r.Platform.Shell).Str("script", path).Msg("reaction started")

	readErr := relay(pr, sink)
	if readErr != nil {
		// Unblock a child still writing into the pipe.
		pr.Close()
	}
	waitErr := cmd.Wait()

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	switch {
	case readErr != nil:
		res.Kind, res.Err = KindIO, readErr
	case waitErr != nil && !isExitError(waitErr):
		res.Kind, res.Err = KindInterrupted, waitErr
	default:
		res.Kind = KindOK
	}
	return res
}

// writeScript stores script in a new file under dir and returns its path.
// The file is closed before return and removed again on any failure.
func writeScript(dir, script string) (string, error) {
	f, err := os.CreateTemp(dir, scriptPattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// relay copies r to sink one line at a time until EOF. Line terminators are
// stripped; a final line without one is still relayed.
func relay(r io.Reader, sink lineSink) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			sink.println(trimEOL(line))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// isExitError reports whether err only says the child exited unsuccessfully.
// The exit status is deliberately not part of the outcome.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// lineSink writes whole lines to the caller's log. Each line is a single
// Write call.
type lineSink struct {
	w   io.Writer
	log zerolog.Logger
}

func (s lineSink) println(line string) {
	if s.w == nil {
		return
	}
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		s.log.Debug().Err(err).Msg("write build log")
	}
}
