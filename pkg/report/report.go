// Package report writes a JSON summary of a scrape run next to its output.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nitterscraper/pkg/scraper"
)

// Report is the persisted summary of one run
type Report struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationSec float64   `json:"duration_seconds"`
	Output      string    `json:"output,omitempty"`
	Saved       bool      `json:"saved"`
	SaveError   string    `json:"save_error,omitempty"`
	Interrupted bool      `json:"interrupted"`
	Records     int       `json:"records"`

	Accounts []Account `json:"accounts"`
}

// Account summarizes the fetch of a single account
type Account struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	Endpoint string `json:"endpoint,omitempty"`
	Attempts int    `json:"attempts"`
	Posts    int    `json:"posts"`
	Error    string `json:"error,omitempty"`
}

// FromRun converts a run result into a Report. saveErr is the error returned
// by the output sink, if any.
func FromRun(run *scraper.RunResult, output string, saveErr error) *Report {
	r := &Report{Output: output, Accounts: []Account{}}
	if run == nil {
		return r
	}

	r.RunID = run.RunID
	r.StartedAt = run.StartedAt
	r.FinishedAt = run.StartedAt.Add(run.Duration)
	r.DurationSec = run.Duration.Seconds()
	r.Interrupted = run.Interrupted
	r.Records = len(run.Records)
	r.Saved = saveErr == nil && len(run.Records) > 0
	if saveErr != nil {
		r.SaveError = saveErr.Error()
	}

	for _, a := range run.Accounts {
		entry := Account{
			Username: a.Account.String(),
			Status:   string(a.Status),
			Endpoint: a.Endpoint.String(),
			Attempts: a.Attempts,
			Posts:    len(a.Records),
		}
		if a.Err != nil {
			entry.Error = a.Err.Error()
		}
		r.Accounts = append(r.Accounts, entry)
	}

	return r
}

// Count returns how many accounts ended with status
func (r *Report) Count(status scraper.AccountStatus) int {
	n := 0
	for _, a := range r.Accounts {
		if a.Status == string(status) {
			n++
		}
	}
	return n
}

// Save writes the report to path as indented JSON
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	return nil
}

// Load reads a report written by Save
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &r, nil
}
