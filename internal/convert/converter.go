// Package convert turns parsed settings into the pipeline, function-app and
// local-settings representations.
//
// Every converter applies the same steps to its input: entries are put in
// the configured order, ignored keys are dropped, values are resolved
// against the variable table for the target environment and each emitted
// key is reported back so a run can build its variable catalog.
package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/variables"
)

// ErrParse is returned when input does not have the shape a converter expects.
var ErrParse = errors.New("parsing input")

// Options are shared by every converter of a run.
type Options struct {
	Ordering Ordering
	Ignore   []string
	Table    variables.Table
}

// Result is the converted document and the keys it contains.
type Result struct {
	Data      []byte
	Variables []string
}

// Converter converts one input representation into another.
type Converter interface {
	Direction() Direction
	// Parse decodes raw input into ordered values.
	Parse(data []byte) (*Values, error)
	// Convert renders values for environment.
	Convert(values *Values, environment string) (Result, error)
}

// New returns the converter for d.
func New(d Direction, opts Options) (Converter, error) {
	b := newBase(opts)
	switch d {
	case LocalToPipeline:
		return &pipelineConverter{base: b}, nil
	case PipelineToAzure:
		return &functionAppConverter{base: b}, nil
	case AzureToLocal:
		return &localConverter{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDirection, d)
	}
}

type base struct {
	ordering Ordering
	ignore   map[string]struct{}
	table    variables.Table
}

func newBase(opts Options) base {
	ignore := make(map[string]struct{}, len(opts.Ignore))
	for _, key := range opts.Ignore {
		ignore[key] = struct{}{}
	}
	return base{
		ordering: opts.Ordering,
		ignore:   ignore,
		table:    opts.Table,
	}
}

// walk emits the entries of values in order, skipping ignored keys. When
// resolve is set each value goes through the variable table first. The
// returned slice holds the emitted keys.
func (b base) walk(values *Values, environment string, resolve bool, emit func(key, value string)) ([]string, error) {
	entries := b.ordering.Apply(values)
	touched := make([]string, 0, len(entries))

	for _, e := range entries {
		if _, skip := b.ignore[e.Key]; skip {
			continue
		}

		value := e.Value
		if resolve {
			resolved, err := b.table.Resolve(e.Key, e.Value, environment)
			if err != nil {
				return nil, err
			}
			value = resolved
		}

		touched = append(touched, e.Key)
		emit(e.Key, value)
	}
	return touched, nil
}

// stringify turns a JSON value into the text written to the output. Strings
// are unquoted, null is empty and anything else keeps its compact JSON form.
func stringify(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// marshalIndent encodes v with two space indentation, without HTML escaping
// and without a trailing newline.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
