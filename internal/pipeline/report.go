package pipeline

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// ReportFileName is written at the run root when reporting is enabled.
const ReportFileName = "conversion-report.json"

// Status is the outcome of a single conversion.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// FileResult is the outcome of one (input, environment, direction) conversion.
type FileResult struct {
	Input       string    `json:"input"`
	Environment string    `json:"environment,omitempty"`
	Direction   string    `json:"direction"`
	Output      string    `json:"output,omitempty"`
	Status      Status    `json:"status"`
	Variables   int       `json:"variables"`
	Bytes       int       `json:"bytes"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`

	err error
}

// Report collects the results of a run. It is safe for concurrent use.
type Report struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Root      string       `json:"root"`
	Results   []FileResult `json:"results"`
	mu        sync.Mutex
}

func newReport(runID, root string, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Root:      root,
		Results:   []FileResult{},
	}
}

func (r *Report) add(res FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.err != nil {
		res.Error = res.err.Error()
	}
	r.Results = append(r.Results, res)
}

// Count returns how many results have the given status.
func (r *Report) Count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// failures returns the errors of failed writes.
func (r *Report) failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			errs = append(errs, res.err)
		}
	}
	return errs
}

// save writes the report to disk
func (r *Report) save(fs afero.Fs, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}
