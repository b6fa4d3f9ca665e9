package convert

import (
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Values is an insertion-ordered key/value map.
type Values = orderedmap.OrderedMap[string, string]

// NewValues returns an empty Values map.
func NewValues() *Values {
	return orderedmap.New[string, string]()
}

// Entry is one key/value pair in emission order.
type Entry struct {
	Key   string
	Value string
}

// Ordering decides the order in which entries are emitted.
type Ordering struct {
	Sort       bool
	Descending bool
}

// Apply returns the pairs of values in emission order. Without Sort the
// insertion order is kept.
func (o Ordering) Apply(values *Values) []Entry {
	if values == nil {
		return nil
	}

	entries := make([]Entry, 0, values.Len())
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Entry{Key: pair.Key, Value: pair.Value})
	}

	if !o.Sort {
		return entries
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if o.Descending {
			return strings.Compare(b.Key, a.Key)
		}
		return strings.Compare(a.Key, b.Key)
	})
	return entries
}
