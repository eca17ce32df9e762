package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/errors"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/nitter"
	"nitterscraper/pkg/pacing"
)

// DefaultPostCount replaces a non-positive target count
const DefaultPostCount = config.DefaultPostsPerAccount

// AccountStatus is how an account's fetch ended
type AccountStatus string

const (
	StatusOK          AccountStatus = "ok"
	StatusExhausted   AccountStatus = "exhausted"
	StatusPanicked    AccountStatus = "panicked"
	StatusInterrupted AccountStatus = "interrupted"
	StatusSkipped     AccountStatus = "skipped"
)

// AccountResult describes the fetch of one account
type AccountResult struct {
	Account models.Account
	// Endpoint that produced the records, empty when none did
	Endpoint mirror.Endpoint
	Attempts int
	Records  []models.Record
	Status   AccountStatus
	Err      error
}

// RunResult is the aggregate of a whole run
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Records     []models.Record
	Accounts    []AccountResult
	Interrupted bool
}

// CountStatus returns how many accounts ended with status
func (r *RunResult) CountStatus(status AccountStatus) int {
	n := 0
	for _, a := range r.Accounts {
		if a.Status == status {
			n++
		}
	}
	return n
}

// Scraper fetches posts for accounts across a list of mirrors
type Scraper struct {
	config   *config.Config
	fetcher  Fetcher
	sleeper  pacing.Sleeper
	logger   logger.Logger
	metrics  Metrics
	cooldown time.Duration
	now      func() time.Time
	onDone   func(AccountResult)
}

// Option configures a Scraper
type Option func(*Scraper)

// WithFetcher replaces the mirror client
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithSleeper replaces the timer used for cooldowns and pacing
func WithSleeper(sl pacing.Sleeper) Option {
	return func(s *Scraper) { s.sleeper = sl }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Scraper) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithAccountHook registers fn to be called after each account is fetched
func WithAccountHook(fn func(AccountResult)) Option {
	return func(s *Scraper) { s.onDone = fn }
}

// New creates a Scraper. Without WithFetcher the client is chosen by
// cfg.Fetch.Mode.
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Scraper{
		config:   cfg,
		sleeper:  pacing.Timer{},
		metrics:  nopMetrics{},
		cooldown: cfg.FailureCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	if s.fetcher == nil {
		f, err := nitter.NewFetcher(cfg.Fetch, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
		s.fetcher = f
	}
	if s.cooldown < 0 {
		s.cooldown = config.DefaultFailureCooldown
	}

	return s, nil
}

// EffectiveCount substitutes DefaultPostCount for a non-positive count
func EffectiveCount(count int) int {
	if count <= 0 {
		return DefaultPostCount
	}
	return count
}

// FetchAccount tries endpoints in order until one returns posts. Every
// failure is followed by the cooldown; an empty answer moves on at once.
func (s *Scraper) FetchAccount(ctx context.Context, account models.Account, endpoints []mirror.Endpoint, count int) AccountResult {
	count = EffectiveCount(count)
	result := AccountResult{Account: account}
	log := s.logger.WithField("account", account.String())

	for i, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			result.Status = StatusInterrupted
			result.Err = err
			return result
		}

		log.InfoWithFields(fmt.Sprintf("Trying instance %d/%d", i+1, len(endpoints)), map[string]interface{}{
			"endpoint": endpoint.String(),
		})
		result.Attempts++

		timeline, err := s.fetchEndpoint(ctx, account, endpoint, count)
		if err != nil && ctx.Err() != nil {
			result.Status = StatusInterrupted
			result.Err = ctx.Err()
			return result
		}

		outcome := classify(timeline, err)
		s.metrics.ObserveAttempt(endpoint.Host(), string(outcome.Kind))

		switch outcome.Kind {
		case OutcomeSuccess:
			result.Endpoint = endpoint
			result.Status = StatusOK
			result.Err = nil
			result.Records = make([]models.Record, 0, len(outcome.Tweets))
			for _, t := range outcome.Tweets {
				result.Records = append(result.Records, models.NewRecord(account, t))
			}
			log.InfoWithFields(fmt.Sprintf("Successfully scraped %d tweets from %s using %s",
				len(result.Records), account, endpoint), map[string]interface{}{
				"endpoint": endpoint.String(),
				"count":    len(result.Records),
			})
			return result

		case OutcomeEmpty:
			log.WarnWithFields(fmt.Sprintf("No tweets found for %s using %s", account, endpoint), map[string]interface{}{
				"endpoint": endpoint.String(),
			})

		case OutcomeEndpointError:
			result.Err = outcome.Err
			log.WithError(outcome.Err).ErrorWithFields(fmt.Sprintf("Error scraping %s with %s", account, endpoint), map[string]interface{}{
				"endpoint":   endpoint.String(),
				"error_type": string(errors.TypeOf(outcome.Err)),
			})
			if err := s.sleeper.Sleep(ctx, s.cooldown); err != nil {
				result.Status = StatusInterrupted
				result.Err = err
				return result
			}
		}
	}

	result.Status = StatusExhausted
	log.ErrorWithFields(fmt.Sprintf("Failed to scrape tweets from %s with all %d instances", account, len(endpoints)), map[string]interface{}{
		"attempts": result.Attempts,
	})
	return result
}

// Run fetches every account in order, pausing delay between consecutive
// accounts. The run never aborts because of one account. When ctx is
// cancelled the records gathered so far are returned with Interrupted set.
func (s *Scraper) Run(ctx context.Context, accounts []string, endpoints []mirror.Endpoint, count int, delay time.Duration) *RunResult {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Records:   []models.Record{},
	}
	log := s.logger.WithField("run_id", result.RunID)
	defer func() {
		result.Duration = s.now().Sub(result.StartedAt)
		s.metrics.ObserveRunDuration(result.Duration)
	}()

	if len(accounts) == 0 {
		log.Warn("No accounts provided for scraping")
		return result
	}
	if count <= 0 {
		log.Warn(fmt.Sprintf("posts_per_account must be positive, using default value of %d", DefaultPostCount))
		count = DefaultPostCount
	}

	log.InfoWithFields(fmt.Sprintf("Starting to scrape %d users...", len(accounts)), map[string]interface{}{
		"endpoints": len(endpoints),
		"count":     count,
		"delay":     delay,
	})

	n := len(accounts)
	for i, raw := range accounts {
		if ctx.Err() != nil {
			result.Interrupted = true
			s.skipRemaining(result, accounts[i:])
			break
		}

		account := models.NormalizeAccount(raw)
		log.Info(fmt.Sprintf("[%d/%d] Scraping tweets from %s", i+1, n, account))

		ar := s.fetchSafely(ctx, account, endpoints, count)
		result.Accounts = append(result.Accounts, ar)
		result.Records = append(result.Records, ar.Records...)
		s.metrics.ObserveAccount(string(ar.Status))
		s.metrics.AddRecords(len(ar.Records))
		if s.onDone != nil {
			s.onDone(ar)
		}

		if ar.Status == StatusInterrupted {
			result.Interrupted = true
			s.skipRemaining(result, accounts[i+1:])
			break
		}

		if i < n-1 {
			log.Info(fmt.Sprintf("Waiting %s before next user", delay))
			if err := s.sleeper.Sleep(ctx, delay); err != nil {
				result.Interrupted = true
				s.skipRemaining(result, accounts[i+1:])
				break
			}
		}
	}

	if result.Interrupted {
		log.InfoWithFields("Scrape interrupted, returning partial results", map[string]interface{}{
			"records": len(result.Records),
		})
	}
	return result
}

// fetchEndpoint queries one mirror. A panic inside the fetcher is returned
// as an endpoint error so the next mirror is still tried.
func (s *Scraper) fetchEndpoint(ctx context.Context, account models.Account, endpoint mirror.Endpoint, count int) (timeline *nitter.Timeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			timeline = nil
			err = errors.New(errors.ErrorTypeParsing, 0, endpoint.String(), fmt.Sprintf("fetcher panicked: %v", r))
		}
	}()
	return s.fetcher.FetchTweets(ctx, account.String(), endpoint, nitter.ModeUser, count)
}

// fetchSafely contains a panic to the account that raised it
func (s *Scraper) fetchSafely(ctx context.Context, account models.Account, endpoints []mirror.Endpoint, count int) (result AccountResult) {
	if account == "" {
		s.logger.Warn("Skipping blank account")
		return AccountResult{Account: account, Status: StatusSkipped, Err: fmt.Errorf("blank account")}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while scraping %s: %v", account, r)
			s.logger.WithError(err).WithField("account", account.String()).Error("Unexpected error while scraping account")
			result = AccountResult{Account: account, Status: StatusPanicked, Err: err}
		}
	}()

	return s.FetchAccount(ctx, account, endpoints, count)
}

func (s *Scraper) skipRemaining(result *RunResult, rest []string) {
	for _, raw := range rest {
		result.Accounts = append(result.Accounts, AccountResult{
			Account: models.NormalizeAccount(raw),
			Status:  StatusSkipped,
		})
		s.metrics.ObserveAccount(string(StatusSkipped))
	}
}

// RunConfigured runs with the accounts, endpoints, count and delay of the
// Scraper's configuration.
func (s *Scraper) RunConfigured(ctx context.Context) (*RunResult, error) {
	pool, err := mirror.NewPool(s.config.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoints: %w", err)
	}
	s.logger.DebugWithFields("Endpoint pool ready", map[string]interface{}{
		"endpoints": pool.Len(),
	})
	return s.Run(ctx, s.config.Accounts, pool.Endpoints(), s.config.PostsPerAccount, s.config.AccountDelay), nil
}
