// Package catalog collects every variable name seen during a run.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/afero"
)

// FileName is the catalog written at the run root.
const FileName = "variables.json"

var ErrFinalized = errors.New("catalog already finalized")

// Builder accumulates variable names. It is safe for concurrent use.
type Builder struct {
	mu        sync.Mutex
	names     map[string]struct{}
	finalized bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Record adds names to the catalog. Repeated names have no further effect.
func (b *Builder) Record(names ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return ErrFinalized
	}
	for _, name := range names {
		b.names[name] = struct{}{}
	}
	return nil
}

// Len returns the number of distinct names recorded so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.names)
}

// Finalize returns the recorded names sorted ascending. It may only be
// called once.
func (b *Builder) Finalize() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, ErrFinalized
	}
	b.finalized = true

	out := make([]string, 0, len(b.names))
	for name := range b.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

// File is the on-disk catalog document.
type File struct {
	Variables []string `json:"variables"`
}

// Write stores names as a catalog document at path.
func Write(fs afero.Fs, path string, names []string) error {
	if names == nil {
		names = []string{}
	}

	data, err := json.MarshalIndent(File{Variables: names}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("writing catalog file: %w", err)
	}
	return nil
}
