// Package registry maps script-source types to the loaders that read them.
//
// A reaction's script body does not have to live in the config file: it can be
// read from a local file, fetched over HTTP, or pulled from a git repository.
// Each of those is a Loader, and a Registry resolves a Source.Type to one.
//
// The Registry is an ordinary value built by the caller. There is no
// package-level registry; callers wire the loaders they want explicitly.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLoader is returned when no loader is registered for a source type.
var ErrUnknownLoader = errors.New("unknown source type")

// Source describes where a reaction script comes from.
// Not all fields are used by all loaders.
type Source struct {
	Type   string `yaml:"type"`             // Loader type: "inline", "file", "http", or "git"
	Script string `yaml:"script,omitempty"` // Script body for the inline loader
	Path   string `yaml:"path,omitempty"`   // File path for file and git loaders
	URL    string `yaml:"url,omitempty"`    // URL for http and git loaders
	Ref    string `yaml:"ref,omitempty"`    // Git ref (branch/tag) for the git loader
}

// Loader reads a script body from one kind of source.
type Loader interface {
	// Name returns the source type this loader serves, e.g. "file".
	Name() string

	// Load returns the script body. An empty body is not an error; the
	// runner treats it as nothing to do.
	Load(ctx context.Context, src Source) (string, error)
}

// Registry holds loaders by name.
type Registry struct {
	loaders map[string]Loader
}

// New returns a registry holding the given loaders.
func New(loaders ...Loader) *Registry {
	r := &Registry{loaders: make(map[string]Loader, len(loaders))}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds l, replacing any loader with the same name.
func (r *Registry) Register(l Loader) { r.loaders[l.Name()] = l }

// Get retrieves a loader by source type.
func (r *Registry) Get(kind string) (Loader, bool) {
	l, ok := r.loaders[kind]
	return l, ok
}

// Names returns the registered source types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves src.Type and reads the script with the matching loader.
func (r *Registry) Load(ctx context.Context, src Source) (string, error) {
	l, ok := r.Get(src.Type)
	if !ok {
		return "", fmt.Errorf("%w %q (have %s)", ErrUnknownLoader, src.Type, strings.Join(r.Names(), ", "))
	}
	return l.Load(ctx, src)
}
