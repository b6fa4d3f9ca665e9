package variables

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reference markers wrapping an environment name, e.g. #$prod$#
const (
	refPrefix = "#$"
	refSuffix = "$#"
)

// Override is a single entry of the variable table. It is either a literal
// value or a reference to the same key in another environment.
type Override struct {
	raw string
	ref string
}

// ParseOverride classifies a raw table value once, at load time. Markers
// wrapping an empty name, as in "#$$#" or "#$#", are kept as literals.
func ParseOverride(raw string) Override {
	if len(raw) > len(refPrefix)+len(refSuffix) &&
		strings.HasPrefix(raw, refPrefix) &&
		strings.HasSuffix(raw, refSuffix) {
		return Override{raw: raw, ref: raw[len(refPrefix) : len(raw)-len(refSuffix)]}
	}
	return Override{raw: raw}
}

// IsReference reports whether the override points at another environment.
func (o Override) IsReference() bool {
	return o.ref != ""
}

// Reference returns the referenced environment name, or "" for literals.
func (o Override) Reference() string {
	return o.ref
}

// String returns the value exactly as it appeared in the configuration.
func (o Override) String() string {
	return o.raw
}

// UnmarshalYAML accepts any scalar and parses it into an Override.
func (o *Override) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: variable value must be a scalar", node.Line)
	}
	*o = ParseOverride(node.Value)
	return nil
}

// UnmarshalJSON accepts any JSON scalar. Numbers and booleans keep their
// source text and null becomes the empty literal.
func (o *Override) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty variable value")
	}

	switch data[0] {
	case '{', '[':
		return errors.New("variable value must be a scalar")
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = ParseOverride(s)
	default:
		if string(data) == "null" {
			*o = ParseOverride("")
			return nil
		}
		*o = ParseOverride(string(data))
	}
	return nil
}

// Table maps environment name -> key -> override.
type Table map[string]map[string]Override

// NewTable builds a table from plain strings, parsing every value.
func NewTable(raw map[string]map[string]string) Table {
	t := make(Table, len(raw))
	for env, values := range raw {
		entries := make(map[string]Override, len(values))
		for key, value := range values {
			entries[key] = ParseOverride(value)
		}
		t[env] = entries
	}
	return t
}

// Lookup returns the override for key in environment, if any.
func (t Table) Lookup(environment, key string) (Override, bool) {
	entries, ok := t[environment]
	if !ok {
		return Override{}, false
	}
	o, ok := entries[key]
	return o, ok
}
