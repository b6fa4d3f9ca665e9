// Package pipeline runs every configured conversion and writes the results.
//
// A run enumerates (direction, input file, environment) triples from the
// environment mappings, converts each one and writes it below the output
// root. Unreadable or malformed inputs and unresolved variable references
// skip that file with a warning. Write failures are collected and returned
// once the run is complete. The variable catalog is written last and only
// contains variables of files that were written successfully.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/catalog"
	c "github.com/PatrickNulla/AZ-Config-Converter/internal/common"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/convert"
	"github.com/PatrickNulla/AZ-Config-Converter/internal/output"
	u "github.com/PatrickNulla/AZ-Config-Converter/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrWriteFailed is returned by Run when at least one output could not be written.
var ErrWriteFailed = errors.New("writing converted output failed")

// Processor runs the conversions of one configuration
type Processor struct {
	ctx        *c.Context
	deps       *c.Dependencies
	log        zerolog.Logger
	startTime  time.Time
	began      time.Time
	paths      *output.Resolver
	converters map[convert.Direction]convert.Converter
	catalog    *catalog.Builder
	report     *Report
	written    atomic.Int64
}

// job is one input file converted in one direction for a set of environments
type job struct {
	direction    convert.Direction
	input        c.InputFile
	environments []string
}

// New creates a processor. The output root, and with it the CreateNew
// timestamp, is fixed here for the whole run.
func New(ctx *c.Context, deps *c.Dependencies) (*Processor, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	startTime := now()

	paths, err := output.NewResolver(deps.Fs, ctx.Config.OutputFolder, ctx.Reference.WriteMode, startTime)
	if err != nil {
		return nil, fmt.Errorf("resolving output root: %w", err)
	}

	opts := convert.Options{
		Ordering: ctx.Reference.Ordering,
		Ignore:   ctx.Config.Ignore,
		Table:    ctx.Config.Variables,
	}
	converters := make(map[convert.Direction]convert.Converter)
	for _, d := range []convert.Direction{convert.LocalToPipeline, convert.PipelineToAzure, convert.AzureToLocal} {
		if converters[d], err = convert.New(d, opts); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	return &Processor{
		ctx:        ctx,
		deps:       deps,
		log:        log.With().Str("run_id", runID).Logger(),
		startTime:  startTime,
		began:      time.Now(),
		paths:      paths,
		converters: converters,
		catalog:    catalog.New(),
		report:     newReport(runID, paths.Root(), startTime),
	}, nil
}

// Report returns the results collected so far
func (p *Processor) Report() *Report {
	return p.report
}

// Root returns the output root of the run
func (p *Processor) Root() string {
	return p.paths.Root()
}

// Run executes every conversion, then writes the variable catalog
func (p *Processor) Run(ctx context.Context) error {
	jobs := p.jobs()
	if len(jobs) == 0 {
		p.log.Warn().Str("mode", p.ctx.Config.Mode.String()).Msg("No conversions selected")
	}

	maxConcurrency := p.ctx.Config.Threads
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}
	sem := semaphore.NewWeighted(int64(maxConcurrency))

	p.log.Info().
		Str("root", p.paths.Root()).
		Str("write_mode", string(p.ctx.Reference.WriteMode)).
		Str("mode", p.ctx.Config.Mode.String()).
		Int("threads", maxConcurrency).
		Int("jobs", len(jobs)).
		Msg("Starting conversion")

	var wg sync.WaitGroup
	for _, j := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func(j job) {
			defer sem.Release(1)
			defer wg.Done()
			p.processJob(ctx, j)
		}(j)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.writeCatalog(); err != nil {
		return err
	}

	if p.ctx.Config.Report {
		if err := p.report.save(p.deps.Fs, filepath.Join(p.paths.Root(), ReportFileName)); err != nil {
			p.log.Error().Err(err).Msg("Failed to save conversion report")
		}
	}

	p.logFinalStats()

	if errs := p.report.failures(); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrWriteFailed, errors.Join(errs...))
	}
	return nil
}

// jobs enumerates the conversions selected by the configuration
func (p *Processor) jobs() []job {
	cfg := p.ctx.Config

	if cfg.Mode == c.ModeAzureToLocal {
		return []job{{
			direction:    convert.AzureToLocal,
			input:        c.NewInputFile(cfg.InputFile, ""),
			environments: []string{""},
		}}
	}

	var jobs []job
	for i, mapping := range cfg.ConfigPath.Env {
		if i >= len(p.ctx.Reference.Directions) {
			break
		}
		for _, d := range p.ctx.Reference.Directions[i] {
			envs := mapping.Names
			if !d.UsesEnvironment() {
				envs = []string{""}
			}
			for _, input := range mapping.Inputs() {
				jobs = append(jobs, job{direction: d, input: input, environments: envs})
			}
		}
	}
	return jobs
}

// processJob reads and parses the input once and converts it for every environment
func (p *Processor) processJob(ctx context.Context, j job) {
	conv := p.converters[j.direction]
	logger := p.log.With().
		Str("input", j.input.Path).
		Str("direction", j.direction.String()).
		Logger()

	values, err := load(p.deps, conv, j.input.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping input file")
		for _, env := range j.environments {
			p.report.add(FileResult{
				Input:       j.input.Path,
				Environment: env,
				Direction:   j.direction.String(),
				Status:      StatusSkipped,
				ProcessedAt: time.Now(),
				err:         err,
			})
		}
		return
	}

	for _, env := range j.environments {
		if ctx.Err() != nil {
			return
		}
		p.convertOne(logger, conv, j, env, values)
	}
}

func load(deps *c.Dependencies, conv convert.Converter, path string) (*convert.Values, error) {
	data, err := u.ReadInputFile(deps.Fs, path)
	if err != nil {
		return nil, err
	}
	return conv.Parse(data)
}

// convertOne converts values for a single environment and writes the result
func (p *Processor) convertOne(logger zerolog.Logger, conv convert.Converter, j job, env string, values *convert.Values) {
	result := FileResult{
		Input:       j.input.Path,
		Environment: env,
		Direction:   j.direction.String(),
	}
	defer func() {
		result.ProcessedAt = time.Now()
		p.report.add(result)
	}()

	res, err := conv.Convert(values, env)
	if err != nil {
		logger.Warn().Err(err).Str("environment", env).Msg("Skipping conversion")
		result.Status, result.err = StatusSkipped, err
		return
	}

	path, err := p.write(j, env, res.Data)
	result.Output = path
	if err != nil {
		logger.Error().Err(err).Str("environment", env).Str("output", path).Msg("Failed to write output")
		result.Status, result.err = StatusFailed, err
		return
	}

	if err := p.catalog.Record(res.Variables...); err != nil {
		logger.Error().Err(err).Msg("Failed to record variables")
	}
	p.written.Add(int64(len(res.Data)))

	result.Status = StatusConverted
	result.Variables = len(res.Variables)
	result.Bytes = len(res.Data)

	logger.Debug().
		Str("environment", env).
		Str("output", path).
		Int("variables", len(res.Variables)).
		Msg("Converted")
}

func (p *Processor) write(j job, env string, data []byte) (string, error) {
	dir, err := p.paths.Dir(env, p.subfolder(j.direction))
	if err != nil {
		return p.paths.Path(env, p.subfolder(j.direction)), err
	}
	return p.paths.WriteFile(dir, j.direction.FileName(env, j.input.Name), data)
}

// subfolder returns the configured target folder of a direction
func (p *Processor) subfolder(d convert.Direction) string {
	switch d {
	case convert.LocalToPipeline:
		return p.ctx.Config.PipelineFolder
	case convert.PipelineToAzure:
		return p.ctx.Config.FunctionAppFolder
	default:
		return p.ctx.Config.LocalFolder
	}
}

// writeCatalog finalizes the catalog and writes it once at the run root
func (p *Processor) writeCatalog() error {
	names, err := p.catalog.Finalize()
	if err != nil {
		return fmt.Errorf("finalizing variable catalog: %w", err)
	}

	root := p.paths.Root()
	if err := p.deps.Fs.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("creating output root: %w", err)
	}

	path := filepath.Join(root, catalog.FileName)
	if err := catalog.Write(p.deps.Fs, path, names); err != nil {
		return err
	}

	p.log.Info().
		Str("output", path).
		Int("variables", len(names)).
		Msg("Variable catalog written")
	return nil
}

// logFinalStats logs final processing statistics
func (p *Processor) logFinalStats() {
	p.log.Info().
		Int("converted", p.report.Count(StatusConverted)).
		Int("skipped", p.report.Count(StatusSkipped)).
		Int("failed", p.report.Count(StatusFailed)).
		Str("written", humanize.Bytes(uint64(p.written.Load()))).
		Str("total_time", time.Since(p.began).Round(time.Millisecond).String()).
		Msg("Conversion complete")
}
