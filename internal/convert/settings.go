package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/valyala/bytebufferpool"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// localSettings is the document written by the function-app to local
// conversion.
type localSettings struct {
	IsEncrypted bool    `json:"IsEncrypted"`
	Values      *Values `json:"Values"`
}

// appSetting is one entry of a function-app configuration array as read.
// slotSetting is not carried over to local settings.
type appSetting struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// settingsKey holds the settings object of local-settings and pipeline
// input files. It is matched exactly, unlike encoding/json field names.
const settingsKey = "Values"

func parseSettings(data []byte) (*Values, error) {
	if !startsWith(data, '{') {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrParse)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	raw, ok := doc[settingsKey]
	if !ok || !startsWith(raw, '{') {
		return nil, fmt.Errorf("%w: missing %q object", ErrParse, settingsKey)
	}

	entries := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	values := NewValues()
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		s, err := stringify(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %w", ErrParse, pair.Key, err)
		}
		values.Set(pair.Key, s)
	}
	return values, nil
}

// startsWith reports whether the first non-space byte of data is c
func startsWith(data []byte, c byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == c
}

// pipelineConverter renders local settings as release-pipeline arguments:
// -Key "value" -Other "value"
type pipelineConverter struct {
	base
}

func (c *pipelineConverter) Direction() Direction { return LocalToPipeline }

func (c *pipelineConverter) Parse(data []byte) (*Values, error) {
	return parseSettings(data)
}

func (c *pipelineConverter) Convert(values *Values, environment string) (Result, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	touched, err := c.walk(values, environment, true, func(key, value string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_ = buf.WriteByte('-')
		_, _ = buf.WriteString(key)
		_, _ = buf.WriteString(` "`)
		_, _ = buf.WriteString(value)
		_ = buf.WriteByte('"')
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Data:      append([]byte(nil), buf.B...),
		Variables: touched,
	}, nil
}

// functionAppConverter renders pipeline settings as a function-app JSON
// array.
type functionAppConverter struct {
	base
}

func (c *functionAppConverter) Direction() Direction { return PipelineToAzure }

func (c *functionAppConverter) Parse(data []byte) (*Values, error) {
	return parseSettings(data)
}

func (c *functionAppConverter) Convert(values *Values, environment string) (Result, error) {
	type setting struct {
		Name        string `json:"name"`
		Value       string `json:"value"`
		SlotSetting bool   `json:"slotSetting"`
	}

	settings := make([]setting, 0, values.Len())
	touched, err := c.walk(values, environment, true, func(key, value string) {
		settings = append(settings, setting{Name: key, Value: value})
	})
	if err != nil {
		return Result{}, err
	}

	data, err := marshalIndent(settings)
	if err != nil {
		return Result{}, fmt.Errorf("encoding function app settings: %w", err)
	}
	return Result{Data: data, Variables: touched}, nil
}

// localConverter turns a function-app JSON array back into a local
// settings document. Values are copied as-is; environments do not apply.
type localConverter struct {
	base
}

func (c *localConverter) Direction() Direction { return AzureToLocal }

func (c *localConverter) Parse(data []byte) (*Values, error) {
	if !startsWith(data, '[') {
		return nil, fmt.Errorf("%w: expected a JSON array of settings", ErrParse)
	}

	var settings []appSetting
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	values := NewValues()
	for i, s := range settings {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrParse, i)
		}
		v, err := stringify(s.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %w", ErrParse, s.Name, err)
		}
		values.Set(s.Name, v)
	}
	return values, nil
}

func (c *localConverter) Convert(values *Values, _ string) (Result, error) {
	out := NewValues()
	touched, err := c.walk(values, "", false, func(key, value string) {
		out.Set(key, value)
	})
	if err != nil {
		return Result{}, err
	}

	data, err := marshalIndent(localSettings{Values: out})
	if err != nil {
		return Result{}, fmt.Errorf("encoding local settings: %w", err)
	}
	return Result{Data: data, Variables: touched}, nil
}
