package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/common"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/convert"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/env"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/output"
	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config related constants
const (
	envPrefix      = "AZCONV"
	configFileName = "converter"
	appName        = "azconv"
)

// Defaults for folders the configuration file may leave out
const (
	DefaultOutputFolder      = "Converted-Config"
	DefaultPipelineFolder    = "Azure-DevOps-ReleasePipeline-Config"
	DefaultFunctionAppFolder = "Azure-FunctionApp-Config"
	DefaultLocalFolder       = "Local-Settings-Config"
)

// Common validation errors
var (
	ErrConfigNotFound      = errors.New("no converter configuration file found")
	ErrInvalidNumProcesses = errors.New("number of threads must be greater than 0")
	ErrNoMappings          = errors.New("configuration declares no environment mappings")
	ErrMissingInputFile    = errors.New("azure-to-local conversion requires an input file")
)

// Options holds CLI flags and configuration options.
type Options struct {
	ConfigPath string // Path to configuration file

	// Run selection
	Mode      common.Mode
	InputFile string

	// Output options
	OutputFolder string
	WriteMode    string
	Report       bool

	// Conversion options
	Sort           bool
	SortDescending bool
	Threads        int

	Debug bool
}

// ConfigLoader handles loading and merging configuration from different sources
type ConfigLoader struct {
	fs  afero.Fs
	env *env.Getter
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(fs afero.Fs) *ConfigLoader {
	return &ConfigLoader{
		fs:  fs,
		env: env.New(envPrefix),
	}
}

// LoadConfig loads the configuration from all sources and returns the merged result.
func LoadConfig(deps common.Dependencies, configPath string, opts Options) (common.Config, error) {
	loader := NewConfigLoader(deps.Fs)

	path, err := loader.findConfig(configPath)
	if err != nil {
		return common.Config{}, fmt.Errorf("finding config file: %w", err)
	}

	// Converting a single function-app file back needs no mappings
	if path == "" && opts.Mode != common.ModeAzureToLocal {
		return common.Config{}, ErrConfigNotFound
	}

	config, err := loader.readConfig(path)
	if err != nil {
		return common.Config{}, fmt.Errorf("loading config file: %w", err)
	}

	applyDefaults(&config)
	return loader.mergeConfig(config, opts)
}

// findConfig searches for the config file in standard locations.
func (cl *ConfigLoader) findConfig(explicitPath string) (string, error) {
	if explicitPath != "" {
		exists, err := afero.Exists(cl.fs, explicitPath)
		if err != nil {
			return "", fmt.Errorf("checking config file: %w", err)
		}
		if !exists {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return explicitPath, nil
	}

	v := viper.New()
	v.SetFs(cl.fs)
	v.SetConfigName(configFileName)

	searchPaths := []string{
		".",                                   // Current directory
		filepath.Join(xdg.ConfigHome, appName), // XDG config directory
		xdg.ConfigHome,                        // XDG config home
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}

	for _, path := range searchPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return "", nil
		}
		return "", fmt.Errorf("reading config file: %w", err)
	}

	return v.ConfigFileUsed(), nil
}

// readConfig reads and parses the config file. JSON files go through
// encoding/json, anything else through yaml.v3. Both keep the case of
// variable names intact.
func (cl *ConfigLoader) readConfig(path string) (common.Config, error) {
	if path == "" {
		return common.Config{}, nil
	}

	f, err := cl.fs.Open(path)
	if err != nil {
		return common.Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var config common.Config
	if err := newDecoder(path, f).Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return common.Config{}, fmt.Errorf("config file %s is empty", path)
		}
		return common.Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

type decoder interface {
	Decode(v any) error
}

func newDecoder(path string, r io.Reader) decoder {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.NewDecoder(r)
	}
	return yaml.NewDecoder(r)
}

func applyDefaults(config *common.Config) {
	if config.OutputFolder == "" {
		config.OutputFolder = DefaultOutputFolder
	}
	if config.PipelineFolder == "" {
		config.PipelineFolder = DefaultPipelineFolder
	}
	if config.FunctionAppFolder == "" {
		config.FunctionAppFolder = DefaultFunctionAppFolder
	}
	if config.LocalFolder == "" {
		config.LocalFolder = DefaultLocalFolder
	}
	if config.WriteMode == "" {
		config.WriteMode = string(output.Overwrite)
	}
	if config.Threads == 0 {
		config.Threads = 1
	}
}

// mergeConfig combines configuration from all sources in order of precedence.
func (cl *ConfigLoader) mergeConfig(config common.Config, opts Options) (common.Config, error) {
	config.Mode = opts.Mode
	config.InputFile = opts.InputFile

	// CLI options take precedence over config file
	if opts.OutputFolder != "" {
		config.OutputFolder = opts.OutputFolder
	}
	if opts.WriteMode != "" {
		config.WriteMode = opts.WriteMode
	}
	if opts.Threads != 0 {
		config.Threads = opts.Threads
	}

	// Boolean flags use OR semantics
	config.Sort = config.Sort || opts.Sort
	config.SortDescending = config.SortDescending || opts.SortDescending
	config.Report = config.Report || opts.Report
	config.Debug = config.Debug || opts.Debug

	// Environment variables override both config file and CLI options
	var errs []error
	config.OutputFolder = cl.env.GetString("OUTPUT_FOLDER", config.OutputFolder)
	config.WriteMode = cl.env.GetString("WRITE_MODE", config.WriteMode)

	var err error
	if config.Threads, err = cl.env.GetInt("THREADS", config.Threads); err != nil {
		errs = append(errs, err)
	}
	if config.Sort, err = cl.env.GetBool("SORT", config.Sort); err != nil {
		errs = append(errs, err)
	}
	if config.SortDescending, err = cl.env.GetBool("SORT_DESCENDING", config.SortDescending); err != nil {
		errs = append(errs, err)
	}
	if config.Report, err = cl.env.GetBool("REPORT", config.Report); err != nil {
		errs = append(errs, err)
	}
	if config.Debug, err = cl.env.GetBool("DEBUG", config.Debug); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return config, fmt.Errorf("reading environment: %w", errors.Join(errs...))
	}
	return config, nil
}

// ValidateConfig reports every problem with the merged configuration at once.
func ValidateConfig(config *common.Config) error {
	var errs []error

	if config.Threads < 1 {
		errs = append(errs, ErrInvalidNumProcesses)
	}

	if _, err := output.ParseWriteMode(config.WriteMode); err != nil {
		errs = append(errs, err)
	}

	if err := validateOutputFolder(config.OutputFolder); err != nil {
		errs = append(errs, err)
	}

	if config.Mode == common.ModeAzureToLocal {
		if config.InputFile == "" {
			errs = append(errs, ErrMissingInputFile)
		}
	} else if len(config.ConfigPath.Env) == 0 {
		errs = append(errs, ErrNoMappings)
	}

	for i, mapping := range config.ConfigPath.Env {
		if err := validateMapping(mapping); err != nil {
			errs = append(errs, fmt.Errorf("environment mapping %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func validateMapping(mapping common.EnvironmentMapping) error {
	var errs []error

	directions, err := Directions(mapping, common.ModeAll)
	if err != nil {
		errs = append(errs, err)
	}

	needsEnvironments := false
	for _, d := range directions {
		needsEnvironments = needsEnvironments || d.UsesEnvironment()
	}
	if needsEnvironments && len(mapping.Names) == 0 {
		errs = append(errs, errors.New("no environment names"))
	}
	for _, name := range mapping.Names {
		if name == "" {
			errs = append(errs, errors.New("empty environment name"))
		}
	}

	inputs := mapping.Inputs()
	if len(inputs) == 0 {
		errs = append(errs, errors.New("no input files"))
	}
	for _, in := range inputs {
		if in.Path == "" {
			errs = append(errs, errors.New("input file with empty path"))
		}
	}

	return errors.Join(errs...)
}

// validateOutputFolder rejects empty and filesystem root output folders.
func validateOutputFolder(path string) error {
	if path == "" {
		return errors.New("output folder must be set")
	}
	cleanPath := filepath.Clean(path)
	if cleanPath == "/" || filepath.VolumeName(cleanPath) == cleanPath {
		return fmt.Errorf("cannot use root path as output folder: %s", path)
	}
	return nil
}

// Directions returns the conversions a mapping takes part in under mode. A
// tagged mapping only runs its declared direction; an untagged one runs
// the forward conversions the mode selects.
func Directions(mapping common.EnvironmentMapping, mode common.Mode) ([]convert.Direction, error) {
	if mapping.Tagged() {
		d, err := convert.ParseDirection(mapping.ConvertFrom, mapping.ConvertTo)
		if err != nil {
			return nil, err
		}
		switch {
		case mode == common.ModeAll,
			mode == common.ModeLocalToPipeline && d == convert.LocalToPipeline,
			mode == common.ModePipelineToAzure && d == convert.PipelineToAzure:
			return []convert.Direction{d}, nil
		}
		return nil, nil
	}

	switch mode {
	case common.ModeAll:
		return convert.Forward, nil
	case common.ModeLocalToPipeline:
		return []convert.Direction{convert.LocalToPipeline}, nil
	case common.ModePipelineToAzure:
		return []convert.Direction{convert.PipelineToAzure}, nil
	default:
		return nil, nil
	}
}

// GetDependencies creates and returns the application dependencies.
func GetDependencies() (common.Dependencies, error) {
	deps := common.Dependencies{
		Fs:  afero.NewOsFs(),
		Now: time.Now,
	}

	return deps, nil
}

// GetContext derives the reference configuration. Unsupported conversion
// directions fail here, before any file is touched.
func GetContext(deps common.Dependencies, config common.Config) (common.Context, error) {
	mode, err := output.ParseWriteMode(config.WriteMode)
	if err != nil {
		return common.Context{}, err
	}

	ref := common.Reference{
		WriteMode: mode,
		Ordering: convert.Ordering{
			Sort:       config.Sort,
			Descending: config.SortDescending,
		},
		Directions: make([][]convert.Direction, len(config.ConfigPath.Env)),
	}

	for i, mapping := range config.ConfigPath.Env {
		if ref.Directions[i], err = Directions(mapping, config.Mode); err != nil {
			return common.Context{}, fmt.Errorf("environment mapping %d: %w", i, err)
		}
	}

	return common.Context{
		Config:    config,
		Reference: ref,
	}, nil
}
