// Package core implements the reaction tool's business logic.
//
// This package loads the reaction configuration, resolves each reaction's
// script through the loader registry, hands it to the runner, and records
// the outcome in the journal.
//
// Key components:
//   - config.go: Configuration file structure and parsing
//   - engine.go: Run and List implementation
//   - journal.go: Journal structure and I/O
//   - hash.go: Script digests
package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jprybylski/reaction/internal/registry"
)

// ErrDuplicateID is returned when two reactions share an id.
var ErrDuplicateID = errors.New("duplicate reaction id")

// Config represents the structure of the .reaction.yaml configuration file.
//
// The configuration lists the reactions a host may trigger when a build runs
// past its time limit. It's typically version-controlled next to the build
// definition.
type Config struct {
	Version   int        `yaml:"version"`   // Config file format version (currently 1)
	Defaults  Defaults   `yaml:"defaults"`  // Settings shared by every reaction
	Reactions []Reaction `yaml:"reactions"` // Reactions, run in file order
}

// Defaults specifies settings that apply to all reactions.
type Defaults struct {
	Shell   string `yaml:"shell,omitempty"`    // Interpreter override; empty uses the detected shell
	TempDir string `yaml:"temp_dir,omitempty"` // Where scripts are materialized; empty uses the OS temp dir
}

// Reaction is a single script to run when a build times out.
//
// The script can be given inline with "script", or through a "source" that
// names a loader (inline, file, http, git). Only one of the two may be set.
// A reaction with neither is valid and is skipped at run time.
type Reaction struct {
	ID     string          `yaml:"id"`               // Unique identifier for this reaction
	Desc   string          `yaml:"desc"`             // Human-readable description
	Script string          `yaml:"script,omitempty"` // Inline script body (shorthand for an inline source)
	Source registry.Source `yaml:"source,omitempty"` // Where to load the script from
}

// readConfig loads and parses the configuration file from disk.
func readConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Version != 1 {
		return nil, fmt.Errorf("unsupported config version %d", c.Version)
	}

	seen := make(map[string]bool, len(c.Reactions))
	for i := range c.Reactions {
		rc := &c.Reactions[i]
		if err := validateReaction(rc); err != nil {
			return nil, fmt.Errorf("reaction %d (%s): %w", i, rc.ID, err)
		}
		if seen[rc.ID] {
			return nil, fmt.Errorf("reaction %d: %w %q", i, ErrDuplicateID, rc.ID)
		}
		seen[rc.ID] = true
	}

	return &c, nil
}

// validateReaction checks that a reaction has an id and at most one script
// definition, and that a source block names its loader.
func validateReaction(rc *Reaction) error {
	if strings.TrimSpace(rc.ID) == "" {
		return errors.New("reaction must have an 'id'")
	}
	src := rc.Source
	if src.Type == "" && src != (registry.Source{}) {
		return errors.New("source.type is required")
	}
	if rc.Script != "" && src.Type != "" {
		return errors.New("reaction cannot have both 'script' and 'source' specified (use only one)")
	}
	return nil
}

// GetSource returns where the reaction's script comes from.
//
// The inline "script" shorthand and an absent source both resolve to the
// inline loader, so callers always go through the registry.
func (rc *Reaction) GetSource() registry.Source {
	if rc.Source.Type != "" {
		return rc.Source
	}
	return registry.Source{Type: "inline", Script: rc.Script}
}
