package core

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Journal records the last outcome of every reaction that was run.
type Journal struct {
	Version int                      `yaml:"version"`
	LastRun *time.Time               `yaml:"last_run,omitempty"`
	Items   map[string]*JournalEntry `yaml:"items"`
}

type JournalEntry struct {
	Invocation     string     `yaml:"invocation,omitempty"` // matches the operator log's invocation field
	Outcome        string     `yaml:"outcome"`
	ExitCode       int        `yaml:"exit_code"`
	ScriptSHA256   string     `yaml:"script_sha256,omitempty"`
	ElapsedSeconds int64      `yaml:"elapsed_seconds"`
	RanAt          *time.Time `yaml:"ran_at,omitempty"`
}

// readJournal loads the journal at path. A missing file is an empty journal.
func readJournal(path string) (*Journal, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newJournal(), nil
		}
		return nil, err
	}
	var j Journal
	if err := yaml.Unmarshal(b, &j); err != nil {
		return nil, err
	}
	if j.Items == nil {
		j.Items = map[string]*JournalEntry{}
	}
	return &j, nil
}

func newJournal() *Journal {
	return &Journal{Version: 1, Items: map[string]*JournalEntry{}}
}

// writeJournal replaces the journal at path atomically. Each writer stages
// into its own temp file next to path, so concurrent runs never share one.
func writeJournal(path string, j *Journal) error {
	b, err := yaml.Marshal(j)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
