package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/cli"
	c "github.com/PatrickNulla/AZ-Config-Converter/internal/common"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/pipeline"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/vcs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	rootCtx    context.Context
	rootCancel context.CancelFunc
	// Version information
	version = vcs.Get().String()

	// Core dependencies
	dep    c.Dependencies
	ctx    c.Context
	config c.Config

	// Configuration
	configPath string
	options    cli.Options

	// Mode selectors
	localToPipeline bool
	pipelineToAzure bool
	azureToLocal    string
)

type spawn interface {
	Run(context.Context) error
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: version,
	Use:     "azconv",
	Short:   "Convert Azure Function configuration between formats",
	Long: `Convert Azure Function settings between local.settings.json, release
pipeline argument lists and function-app configuration JSON.

Without a mode flag both forward conversions run for every environment
mapping in the converter configuration.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: preRun,
	RunE:              runConvert,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

func init() {
	rootCtx, rootCancel = context.WithCancel(context.Background())

	// Persistent flags
	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&configPath, "config", "", "config file (default is converter.json in ., $XDG_CONFIG_HOME/azconv or $HOME)")
	pFlags.BoolVar(&options.Debug, "debug", false, "enable debug logging")
	pFlags.IntVar(&options.Threads, "threads", 0, "number of files converted in parallel")
	pFlags.StringVar(&options.OutputFolder, "output", "", "output root folder")
	pFlags.StringVar(&options.WriteMode, "write-mode", "", "Overwrite or CreateNew")
	pFlags.BoolVar(&options.Sort, "sort", false, "sort keys before writing")
	pFlags.BoolVar(&options.SortDescending, "sort-descending", false, "sort keys in descending order")
	pFlags.BoolVar(&options.Report, "report", false, "write a conversion report next to the variable catalog")

	// Mode flags
	flags := rootCmd.Flags()
	flags.BoolVar(&localToPipeline, "local-to-pipeline", false, "only convert local settings to release pipeline arguments")
	flags.BoolVar(&pipelineToAzure, "pipeline-to-azure", false, "only convert pipeline settings to function app configuration")
	flags.StringVar(&azureToLocal, "azure-to-local", "", "convert a function app configuration file back to local settings")
	rootCmd.MarkFlagsMutuallyExclusive("local-to-pipeline", "pipeline-to-azure", "azure-to-local")
}

// selectMode maps the mode flags onto a run mode
func selectMode() c.Mode {
	switch {
	case localToPipeline:
		return c.ModeLocalToPipeline
	case pipelineToAzure:
		return c.ModePipelineToAzure
	case azureToLocal != "":
		return c.ModeAzureToLocal
	default:
		return c.ModeAll
	}
}

// preRun initializes all dependencies before command execution
func preRun(_ *cobra.Command, _ []string) error {
	var err error

	options.Mode = selectMode()
	options.InputFile = azureToLocal

	// Initialize dependencies
	if dep, err = cli.GetDependencies(); err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	// Load configuration
	if config, err = cli.LoadConfig(dep, configPath, options); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err = cli.ValidateConfig(&config); err != nil {
		return err
	}

	// Initialize context
	if ctx, err = cli.GetContext(dep, config); err != nil {
		return fmt.Errorf("initializing context: %w", err)
	}

	// Log startup information
	log.Info().
		Str("version", version).
		Bool("debug", config.Debug).
		Str("mode", config.Mode.String()).
		Str("output", config.OutputFolder).
		Str("write_mode", config.WriteMode).
		Bool("sort", config.Sort).
		Int("mappings", len(config.ConfigPath.Env)).
		Int("threads", config.Threads).
		Msg("Starting azconv")
	return nil
}

func runConvert(_ *cobra.Command, _ []string) error {
	proc, err := pipeline.New(&ctx, &dep)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	return runWithSignalHandling(proc)
}

// Execute starts the application
func Execute() error {
	defer func() {
		rootCancel()
		log.Debug().Msg("Shutdown complete")
	}()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Conversion was cancelled")
			return nil
		}
		return fmt.Errorf("executing command: %w", err)
	}
	return nil
}

func runWithSignalHandling(proc spawn) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)

	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Received interrupt signal, initiating shutdown...")
			rootCancel()
		case <-rootCtx.Done():
		}
	}()

	go func() {
		done <- proc.Run(rootCtx)
	}()

	err := <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("conversion error: %w", err)
	}
	return err
}
