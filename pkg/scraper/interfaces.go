package scraper

import (
	"context"
	"time"

	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/nitter"
)

// Fetcher retrieves posts for one account from one mirror
type Fetcher interface {
	FetchTweets(ctx context.Context, term string, endpoint mirror.Endpoint, mode string, count int) (*nitter.Timeline, error)
}

// Metrics receives run statistics. Implementations must tolerate being
// called from a single goroutine only.
type Metrics interface {
	ObserveAttempt(endpoint, outcome string)
	ObserveAccount(status string)
	AddRecords(n int)
	ObserveRunDuration(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAttempt(string, string)    {}
func (nopMetrics) ObserveAccount(string)            {}
func (nopMetrics) AddRecords(int)                   {}
func (nopMetrics) ObserveRunDuration(time.Duration) {}
