package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nitterscraper/pkg/report"
	"nitterscraper/pkg/ui"
)

func TestRunReportPrintsSavedSummary(t *testing.T) {
	var buf bytes.Buffer
	ui.SetOutput(&buf)
	t.Cleanup(func() { ui.SetOutput(nil) })

	path := filepath.Join(t.TempDir(), "run.json")
	r := &report.Report{
		RunID:      "run-1",
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Records:    3,
		Accounts: []report.Account{
			{Username: "alice", Status: "ok", Endpoint: "https://a.example.net", Attempts: 1, Posts: 3},
		},
	}
	require.NoError(t, r.Save(path))

	require.NoError(t, runReport(reportCmd, []string{path}))
	assert.Contains(t, buf.String(), "alice")
	assert.Contains(t, buf.String(), "run-1")
}

func TestRunReportMissingFile(t *testing.T) {
	err := runReport(reportCmd, []string{filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load report")
}
