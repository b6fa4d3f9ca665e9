// Package output decides where converted files land and writes them.
package output

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// TimestampLayout is the suffix layout of CreateNew run roots.
const TimestampLayout = "20060102_150405"

var ErrInvalidWriteMode = errors.New("invalid write mode")

// WriteMode controls whether a run reuses its output root or creates a new
// timestamped one.
type WriteMode string

const (
	Overwrite WriteMode = "Overwrite"
	CreateNew WriteMode = "CreateNew"
)

// ParseWriteMode accepts the mode names case-insensitively. An empty string
// means Overwrite.
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "createnew", "create-new", "create_new":
		return CreateNew, nil
	default:
		return "", fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidWriteMode, s, Overwrite, CreateNew)
	}
}

// Resolver computes output directories for one run. The CreateNew timestamp
// is fixed when the resolver is built so every file of a run shares a root.
type Resolver struct {
	fs   afero.Fs
	root string
}

// NewResolver returns a resolver rooted at rootFolder. now is only used in
// CreateNew mode.
func NewResolver(fs afero.Fs, rootFolder string, mode WriteMode, now time.Time) (*Resolver, error) {
	if rootFolder == "" {
		return nil, errors.New("output folder must not be empty")
	}

	root := rootFolder
	switch mode {
	case Overwrite:
	case CreateNew:
		root = fmt.Sprintf("%s_%s", rootFolder, now.Format(TimestampLayout))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidWriteMode, mode)
	}

	return &Resolver{fs: fs, root: filepath.Clean(root)}, nil
}

// Root returns the run root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Path returns {root}/{environment}_environment/{subfolder}. An empty
// environment drops that segment.
func (r *Resolver) Path(environment, subfolder string) string {
	if environment == "" {
		return filepath.Join(r.root, subfolder)
	}
	return filepath.Join(r.root, environment+"_environment", subfolder)
}

// Dir is Path, with the directory created if it does not exist yet.
func (r *Resolver) Dir(environment, subfolder string) (string, error) {
	dir := r.Path(environment, subfolder)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteFile writes data to dir/name and returns the full path.
func (r *Resolver) WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(r.fs, path, data, 0644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
