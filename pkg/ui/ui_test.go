package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nitterscraper/pkg/report"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetQuiet(false)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuiet(false)
	})
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintInfo("Output", "dataset.csv")
	PrintSuccess("done")
	PrintWarning("careful", "slow mirror")
	PrintError("failed", "boom")

	out := buf.String()
	assert.Contains(t, out, "Output")
	assert.Contains(t, out, "dataset.csv")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "careful: slow mirror")
	assert.Contains(t, out, "failed: boom")
}

func TestQuietKeepsErrors(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	PrintLogo()
	PrintInfo("Output", "dataset.csv")
	PrintError("fatal problem")

	out := buf.String()
	assert.NotContains(t, out, "dataset.csv")
	assert.Contains(t, out, "fatal problem")
}

func TestStatusTracker(t *testing.T) {
	buf := captureOutput(t)

	st := NewStatusTracker(4)
	assert.Equal(t, "[░░░░░░░░░░░░░░░░░░░░] 0/4", st.Bar())

	st.Complete("alice", "ok", 10)
	st.Complete("bob", "exhausted", 0)

	assert.Equal(t, "[██████████░░░░░░░░░░] 2/4", st.Bar())
	assert.Equal(t, 10, st.Records())
	assert.Equal(t, 1, st.Failed())
	assert.Contains(t, buf.String(), "alice (10 posts)")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.startTime = start
	st.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Equal(t, 5.0, st.GetRecordRate())
}

func TestSummaryTable(t *testing.T) {
	r := &report.Report{
		RunID:   "run-1",
		Records: 3,
		Output:  "dataset.csv",
		Saved:   true,
		Accounts: []report.Account{
			{Username: "alice", Status: "ok", Endpoint: "https://nitter.example.net", Attempts: 1, Posts: 3},
			{Username: "bob", Status: "exhausted", Attempts: 2},
		},
	}

	table := SummaryTable(r)
	assert.Contains(t, table, "ACCOUNT")
	assert.Contains(t, table, "alice")
	assert.Contains(t, table, "https://nitter.example.net")
	assert.Contains(t, table, "exhausted")

	buf := captureOutput(t)
	PrintSummary(r)
	out := buf.String()
	assert.Contains(t, out, "1 ok / 2 total")
	assert.Contains(t, out, "Saved to dataset.csv")
}
