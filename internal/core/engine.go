package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/jprybylski/reaction/internal/handlers/inline"
	"github.com/jprybylski/reaction/internal/reaction"
	"github.com/jprybylski/reaction/internal/registry"
	"github.com/jprybylski/reaction/internal/runtime"
)

// RunOptions configures a Run.
type RunOptions struct {
	ConfigPath  string
	JournalPath string
	IDs         []string      // reactions to run; empty runs all
	Elapsed     time.Duration // time since the build started, for display
	Shell       string        // interpreter override; wins over defaults.shell
	TempDir     string        // script directory override; wins over defaults.temp_dir

	Log io.Writer // build log sink; receives the reactions' output
	Out io.Writer // status lines; defaults to os.Stdout

	Loaders  *registry.Registry // defaults to the inline loader only
	Platform *runtime.Platform  // defaults to runtime.Detect()
	Logger   zerolog.Logger
}

// Run executes the selected reactions in config order and records their
// outcomes in the journal.
// Returns an exit code (0 ok, 1 failures, 2 config/usage error).
func Run(ctx context.Context, opts RunOptions) int {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	cfg, err := readConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(out, "config error: %v\n", err)
		return 2
	}

	exit := 0
	which := map[string]bool{}
	for _, id := range opts.IDs {
		which[id] = true
	}
	known := map[string]bool{}
	for _, rc := range cfg.Reactions {
		known[rc.ID] = true
	}
	for _, id := range opts.IDs {
		if !known[id] {
			fmt.Fprintf(out, "[WARN] %s: no such reaction\n", id)
			exit = 2
		}
	}

	jr, err := readJournal(opts.JournalPath)
	if err != nil {
		fmt.Fprintf(out, "[WARN] journal %s unreadable, starting fresh: %v\n", opts.JournalPath, err)
		jr = newJournal()
	}

	loaders := opts.Loaders
	if loaders == nil {
		loaders = registry.New(inline.New())
	}
	platform := runtime.Detect()
	if opts.Platform != nil {
		platform = *opts.Platform
	}
	runner := &reaction.Runner{
		Platform: platform.WithShell(firstNonEmpty(opts.Shell, cfg.Defaults.Shell)),
		TempDir:  firstNonEmpty(opts.TempDir, cfg.Defaults.TempDir),
		Logger:   opts.Logger,
	}

	for _, rc := range cfg.Reactions {
		if len(which) > 0 && !which[rc.ID] {
			continue
		}
		src := rc.GetSource()
		script, err := loaders.Load(ctx, src)
		if err != nil {
			fmt.Fprintf(out, "[ERR ] %s: load %s script: %v\n", rc.ID, src.Type, err)
			code := 1
			if errors.Is(err, registry.ErrUnknownLoader) {
				code = 2
			}
			if exit == 0 {
				exit = code
			}
			continue
		}

		opts.Logger.Info().Str("reaction", rc.ID).Str("source", src.Type).Msg("running reaction")
		fmt.Fprintf(out, "[RUN ] %s\n", rc.ID)
		res := runner.Execute(script, opts.Log, opts.Elapsed)

		now := time.Now().UTC()
		jr.Items[rc.ID] = &JournalEntry{
			Invocation:     res.Invocation,
			Outcome:        res.Kind.String(),
			ExitCode:       res.ExitCode,
			ScriptSHA256:   hashScript(script),
			ElapsedSeconds: int64(opts.Elapsed / time.Second),
			RanAt:          &now,
		}
		if res.OK() {
			fmt.Fprintf(out, "[OK  ] %s: %s\n", rc.ID, res.Kind)
			continue
		}
		fmt.Fprintf(out, "[FAIL] %s: %s\n", rc.ID, res.Kind)
		if exit == 0 {
			exit = 1
		}
	}

	now := time.Now().UTC()
	jr.Version = 1
	jr.LastRun = &now
	if err := writeJournal(opts.JournalPath, jr); err != nil {
		fmt.Fprintf(out, "journal write error: %v\n", err)
		if exit == 0 {
			exit = 1
		}
	}
	return exit
}

// List prints the configured reactions as id, source type and description.
// Returns an exit code (0 ok, 2 config error).
func List(cfgPath string, w io.Writer) int {
	cfg, err := readConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(w, "config error: %v\n", err)
		return 2
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rc := range cfg.Reactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rc.ID, rc.GetSource().Type, rc.Desc)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
