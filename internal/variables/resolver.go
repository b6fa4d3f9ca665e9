package variables

import (
	"errors"
	"fmt"
)

// ErrUnresolvedReference is returned when an override references an
// environment or key that is not present in the table.
var ErrUnresolvedReference = errors.New("unresolved variable reference")

// ReferenceError identifies the key whose reference could not be followed.
type ReferenceError struct {
	Key         string
	Environment string
	Reference   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: key %q in environment %q references %q",
		ErrUnresolvedReference, e.Key, e.Environment, e.Reference)
}

func (e *ReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// Resolve returns the value to emit for key in environment.
//
// Without an override the raw value is returned unchanged. A literal override
// replaces it. A reference is followed exactly one hop: the target entry is
// returned as written, even if it is itself a reference.
func (t Table) Resolve(key, raw, environment string) (string, error) {
	o, ok := t.Lookup(environment, key)
	if !ok {
		return raw, nil
	}
	if !o.IsReference() {
		return o.String(), nil
	}

	target, ok := t.Lookup(o.Reference(), key)
	if !ok {
		return "", &ReferenceError{Key: key, Environment: environment, Reference: o.Reference()}
	}
	return target.String(), nil
}
