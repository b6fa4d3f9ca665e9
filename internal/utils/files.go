package utils

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

const (
	MaxInputSize = 64 << 20 // 64MB max input file size
	zstdExt      = ".zst"
)

var (
	ErrNoInput       = errors.New("input file not found")
	ErrInputTooLarge = errors.New("input file too large")
)

// ReadInputFile reads a settings file. Files ending in .zst are
// decompressed transparently.
func ReadInputFile(fs afero.Fs, path string) ([]byte, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("checking input file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, path)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == zstdExt {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %s", ErrInputTooLarge, path)
	}

	return data, nil
}
