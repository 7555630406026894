// Reaction runs shell scripts in response to a build exceeding its time limit.
//
// This is the entry point a CI host calls once it has decided a build timed
// out. It loads the reaction definitions, runs the selected scripts, streams
// their output into the build log, and records outcomes in a journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jprybylski/reaction/internal/core"
	"github.com/jprybylski/reaction/internal/handlers/file"
	"github.com/jprybylski/reaction/internal/handlers/git"
	"github.com/jprybylski/reaction/internal/handlers/http"
	"github.com/jprybylski/reaction/internal/handlers/inline"
	"github.com/jprybylski/reaction/internal/logging"
	"github.com/jprybylski/reaction/internal/registry"
)

// usage prints help text to stdout.
func usage() {
	fmt.Print(`reaction - run timeout reaction scripts for a build

Usage:
  reaction [--config .reaction.yaml] list
  reaction [--config .reaction.yaml] [--journal .reaction.journal.yaml]
           [--elapsed 90s] [--log-file build.log]
           [--shell /bin/bash] [--temp-dir DIR] run [ID ...]
`)
}

// main is the program entry point.
//
// Exit codes:
//
//	0 = Success
//	1 = A reaction failed or the journal could not be written
//	2 = Configuration error or invalid usage
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("reaction", flag.ContinueOnError)
	fs.Usage = usage
	cfgPath := fs.String("config", ".reaction.yaml", "path to config YAML")
	journalPath := fs.String("journal", ".reaction.journal.yaml", "path to journal YAML")
	elapsed := fs.Duration("elapsed", 0, "time since the build started")
	logFile := fs.String("log-file", "", "append the build log to this file instead of stdout")
	shell := fs.String("shell", "", "interpreter for reaction scripts (overrides defaults.shell)")
	tempDir := fs.String("temp-dir", "", "directory for materialized scripts (overrides defaults.temp_dir)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage()
		return 2
	}

	logger := logging.ConfigureRuntime()

	switch fs.Arg(0) {
	case "list":
		return core.List(*cfgPath, os.Stdout)

	case "run":
		var sink io.Writer = os.Stdout
		if *logFile != "" {
			f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fmt.Printf("log file error: %v\n", err)
				return 2
			}
			defer f.Close()
			sink = f
		}

		// Interrupts stop script loading; a script that already started runs
		// to completion.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return core.Run(ctx, core.RunOptions{
			ConfigPath:  *cfgPath,
			JournalPath: *journalPath,
			IDs:         fs.Args()[1:],
			Elapsed:     *elapsed,
			Shell:       *shell,
			TempDir:     *tempDir,
			Log:         sink,
			Out:         os.Stdout,
			Loaders:     defaultLoaders(),
			Logger:      logger,
		})

	default:
		usage()
		return 2
	}
}

// defaultLoaders wires every script source the tool supports.
func defaultLoaders() *registry.Registry {
	return registry.New(
		inline.New(),
		file.New(),
		http.New(),
		git.New(),
	)
}
