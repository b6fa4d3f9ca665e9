package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/convert"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/output"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/variables"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Context represents user defined configuration and derived reference configuration
type Context struct {
	Config    Config
	Reference Reference
}

// Mode selects which conversions a run performs
type Mode int

const (
	// ModeAll runs both forward conversions
	ModeAll Mode = iota
	ModeLocalToPipeline
	ModePipelineToAzure
	// ModeAzureToLocal converts a single explicit input file
	ModeAzureToLocal
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeLocalToPipeline:
		return convert.LocalToPipeline.String()
	case ModePipelineToAzure:
		return convert.PipelineToAzure.String()
	case ModeAzureToLocal:
		return convert.AzureToLocal.String()
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Config represents user defined configuration
type Config struct {

	// Output configuration
	OutputFolder      string `yaml:"outputFolder" json:"outputFolder"`
	PipelineFolder    string `yaml:"pipelineFolder" json:"pipelineFolder"`
	FunctionAppFolder string `yaml:"functionAppFolder" json:"functionAppFolder"`
	LocalFolder       string `yaml:"localFolder" json:"localFolder"`
	WriteMode         string `yaml:"writeMode" json:"writeMode"`
	Report            bool   `yaml:"report" json:"report"`

	// Conversion configuration
	Sort           bool            `yaml:"sort" json:"sort"`
	SortDescending bool            `yaml:"sortDescending" json:"sortDescending"`
	Ignore         []string        `yaml:"ignore" json:"ignore"`
	ConfigPath     ConfigPath      `yaml:"config-path" json:"config-path"`
	Variables      variables.Table `yaml:"variables" json:"variables"`
	Threads        int             `yaml:"threads" json:"threads"`

	// Debug configuration
	Debug bool `yaml:"debug" json:"debug"`

	// Run selection, only settable from the command line
	Mode      Mode   `yaml:"-" json:"-"`
	InputFile string `yaml:"-" json:"-"`
}

// ConfigPath groups the environment mappings of the configuration file
type ConfigPath struct {
	Env []EnvironmentMapping `yaml:"env" json:"env"`
}

// EnvironmentMapping is a set of environments sharing the same input files
type EnvironmentMapping struct {
	Names       []string    `yaml:"names" json:"names"`
	Path        []InputFile `yaml:"path" json:"path"`
	Files       []InputFile `yaml:"files" json:"files"`
	ConvertFrom string      `yaml:"convertFrom" json:"convertFrom"`
	ConvertTo   string      `yaml:"convertTo" json:"convertTo"`
}

// Inputs returns the input files declared under either "path" or "files"
func (m EnvironmentMapping) Inputs() []InputFile {
	inputs := make([]InputFile, 0, len(m.Path)+len(m.Files))
	inputs = append(inputs, m.Path...)
	return append(inputs, m.Files...)
}

// Tagged reports whether the mapping declares an explicit direction
func (m EnvironmentMapping) Tagged() bool {
	return m.ConvertFrom != "" || m.ConvertTo != ""
}

// InputFile is an input path and the logical name used for its outputs
type InputFile struct {
	Path string `yaml:"path" json:"path"`
	Name string `yaml:"name" json:"name"`
}

// NewInputFile derives the logical name from the file name when name is empty
func NewInputFile(path, name string) InputFile {
	if name == "" {
		name = filepath.Base(path)
		name = strings.TrimSuffix(name, ".zst")
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return InputFile{Path: path, Name: name}
}

// UnmarshalYAML accepts "file.json", ["file.json", "name"] or {path: ..., name: ...}
func (f *InputFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*f = NewInputFile(node.Value, "")
		return nil

	case yaml.SequenceNode:
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		switch len(pair) {
		case 1:
			*f = NewInputFile(pair[0], "")
		case 2:
			*f = NewInputFile(pair[0], pair[1])
		default:
			return fmt.Errorf("line %d: input file must be [path] or [path, name], got %d items", node.Line, len(pair))
		}
		return nil

	case yaml.MappingNode:
		var raw struct {
			Path string `yaml:"path"`
			Name string `yaml:"name"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*f = NewInputFile(raw.Path, raw.Name)
		return nil
	}
	return fmt.Errorf("line %d: unsupported input file entry", node.Line)
}

// UnmarshalJSON accepts the same three shapes as UnmarshalYAML
func (f *InputFile) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty input file entry")
	}

	switch data[0] {
	case '"':
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return err
		}
		*f = NewInputFile(path, "")
		return nil

	case '[':
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		switch len(pair) {
		case 1:
			*f = NewInputFile(pair[0], "")
		case 2:
			*f = NewInputFile(pair[0], pair[1])
		default:
			return fmt.Errorf("input file must be [path] or [path, name], got %d items", len(pair))
		}
		return nil

	case '{':
		var raw struct {
			Path string `json:"path"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*f = NewInputFile(raw.Path, raw.Name)
		return nil
	}
	return fmt.Errorf("unsupported input file entry: %s", data)
}

// Reference represents derived configuration for internal use from user defined configuration
type Reference struct {
	WriteMode output.WriteMode
	Ordering  convert.Ordering

	// Directions holds the conversions to run for each entry of ConfigPath.Env
	Directions [][]convert.Direction
}

// Dependencies represents references to external dependencies
type Dependencies struct {
	Fs  afero.Fs
	Now func() time.Time
}
