package main

import (
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/PatrickNulla/AZ-Config-Converter/cmd"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/vcs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logFileEnv optionally mirrors log output to a file
const logFileEnv = "AZCONV_LOG_FILE"

func init() {
	// Configure
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Set up console writer for nice formatting
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	var out io.Writer = consoleWriter
	if path := os.Getenv(logFileEnv); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create log directory")
		}

		logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open log file")
		}

		// Use multiple writers to write to both console and file
		out = zerolog.MultiLevelWriter(consoleWriter, logFile)
	}

	// Configure global logger
	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
}

func main() {
	// Set up panic recovery
	defer func() {
		if r := recover(); r != nil {
			log.Fatal().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic")
		}
	}()

	log.Debug().
		Str("version", vcs.Get().String()).
		Msg("azconv starting")

	if err := cmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Application error")
		os.Exit(1)
	}

	log.Info().Msg("Conversion finished")
}
