package nitter

import (
	"context"
	"fmt"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/ratelimit"
)

// Query modes understood by the clients
const (
	ModeUser    = "user"
	ModeHashtag = "hashtag"
	ModeTerm    = "term"
)

// Timeline is what a mirror returned for one query
type Timeline struct {
	Tweets []*models.Fields
}

// Len returns the number of posts in the timeline
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Tweets)
}

// Fetcher retrieves up to count posts for term from endpoint
type Fetcher interface {
	FetchTweets(ctx context.Context, term string, endpoint mirror.Endpoint, mode string, count int) (*Timeline, error)
}

// NewFetcher builds the client selected by cfg.Mode
func NewFetcher(cfg config.FetchConfig, log logger.Logger, opts ...Option) (Fetcher, error) {
	if _, err := ratelimit.NewFactory(cfg.Limiter, cfg.RequestsPerMinute); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case "", config.FetchModeHTML:
		return NewHTMLClient(cfg, log, opts...), nil
	case config.FetchModeJSON:
		return NewJSONClient(cfg, log, opts...), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.Mode)
	}
}
