package env

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
)

// Getter provides methods to get environment variables with defaults
type Getter struct {
	prefix string
}

// New creates a new environment variable getter with an optional prefix
func New(prefix string) *Getter {
	return &Getter{prefix: prefix}
}

// prefixKey adds the prefix to the key if one is set
func (g *Getter) prefixKey(key string) string {
	if g.prefix == "" {
		return key
	}
	return g.prefix + "_" + key
}

func (g *Getter) GetString(key, defaultValue string) string {
	value, exists := os.LookupEnv(g.prefixKey(key))
	if !exists {
		return defaultValue
	}

	return value
}

func (g *Getter) GetInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(g.prefixKey(key))
	if !exists {
		return defaultValue, nil
	}

	intValue, err := cast.ToIntE(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", g.prefixKey(key), err)
	}

	return intValue, nil
}

func (g *Getter) GetBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(g.prefixKey(key))
	if !exists {
		return defaultValue, nil
	}

	boolValue, err := cast.ToBoolE(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", g.prefixKey(key), err)
	}

	return boolValue, nil
}
