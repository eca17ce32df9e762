package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	progressWidth = 20
)

// StatusTracker follows a run account by account
type StatusTracker struct {
	mu        sync.Mutex
	total     int
	done      int
	records   int
	failed    int
	startTime time.Time
	now       func() time.Time
}

// NewStatusTracker creates a tracker for total accounts
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		total:     total,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Complete records one finished account and prints a progress line
func (st *StatusTracker) Complete(account, status string, posts int) {
	st.mu.Lock()
	st.done++
	st.records += posts
	if status != "ok" {
		st.failed++
	}
	line := fmt.Sprintf("%s %s %s",
		highlightStyle.Render(st.barLocked()),
		statusStyle(status).Render(fmt.Sprintf("%-11s", status)),
		valueStyle.Render(fmt.Sprintf("%s (%d posts)", account, posts)))
	st.mu.Unlock()

	write(false, line)
}

// Bar returns the unstyled progress bar, e.g. [████░░] 2/6
func (st *StatusTracker) Bar() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.barLocked()
}

func (st *StatusTracker) barLocked() string {
	filled := 0
	if st.total > 0 {
		filled = st.done * progressWidth / st.total
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, progressWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, st.done, st.total)
}

// Records returns the number of records collected so far
func (st *StatusTracker) Records() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.records
}

// Failed returns the number of accounts that produced nothing
func (st *StatusTracker) Failed() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.failed
}

// GetElapsedTime returns the time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.startTime)
}

// GetRecordRate returns records collected per minute
func (st *StatusTracker) GetRecordRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Records()) / elapsed
}
