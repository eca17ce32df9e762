package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/errors"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/nitter"
	"nitterscraper/pkg/pacing"
	"nitterscraper/pkg/storage"
)

const (
	testCooldown = time.Second
	testDelay    = 5 * time.Second
)

type fetchCall struct {
	term     string
	endpoint mirror.Endpoint
	mode     string
	count    int
}

// fakeFetcher answers from a script keyed by "term@endpoint"
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	respond func(term string, endpoint mirror.Endpoint) (*nitter.Timeline, error)
}

func (f *fakeFetcher) FetchTweets(ctx context.Context, term string, endpoint mirror.Endpoint, mode string, count int) (*nitter.Timeline, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{term, endpoint, mode, count})
	f.mu.Unlock()
	return f.respond(term, endpoint)
}

func (f *fakeFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func scripted(script map[string]func() (*nitter.Timeline, error)) *fakeFetcher {
	return &fakeFetcher{respond: func(term string, endpoint mirror.Endpoint) (*nitter.Timeline, error) {
		if fn, ok := script[term+"@"+endpoint.String()]; ok {
			return fn()
		}
		return &nitter.Timeline{}, nil
	}}
}

func posts(n int, prefix string) func() (*nitter.Timeline, error) {
	return func() (*nitter.Timeline, error) {
		t := &nitter.Timeline{}
		for i := 0; i < n; i++ {
			f := models.NewFields()
			f.Set("text", fmt.Sprintf("%s-%d", prefix, i))
			t.Tweets = append(t.Tweets, f)
		}
		return t, nil
	}
}

func empty() (*nitter.Timeline, error) { return &nitter.Timeline{}, nil }

func failing() (*nitter.Timeline, error) {
	return nil, errors.New(errors.ErrorTypeServerError, 502, "", "bad gateway")
}

func newTestScraper(t *testing.T, f Fetcher) (*Scraper, *pacing.Recorder, *logger.TestLogger) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FailureCooldown = testCooldown
	rec := &pacing.Recorder{}
	tl := logger.NewTestLogger()
	s, err := New(cfg, WithFetcher(f), WithSleeper(rec), WithLogger(tl))
	require.NoError(t, err)
	return s, rec, tl
}

func endpoints(names ...string) []mirror.Endpoint {
	out := make([]mirror.Endpoint, len(names))
	for i, n := range names {
		out[i] = mirror.Endpoint(n)
	}
	return out
}

func TestClassify(t *testing.T) {
	boom := stderrors.New("boom")
	one, _ := posts(1, "x")()

	assert.Equal(t, OutcomeEndpointError, classify(nil, boom).Kind)
	assert.Equal(t, boom, classify(one, boom).Err)
	assert.Equal(t, OutcomeEmpty, classify(nil, nil).Kind)
	assert.Equal(t, OutcomeEmpty, classify(&nitter.Timeline{}, nil).Kind)

	out := classify(one, nil)
	assert.Equal(t, OutcomeSuccess, out.Kind)
	assert.Len(t, out.Tweets, 1)
}

func TestFetchAccountFirstEndpointShortCircuits(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alpha@E1": posts(3, "a"),
		"alpha@E2": posts(3, "never"),
	})
	s, rec, _ := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1", "E2", "E3"), 10)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, mirror.Endpoint("E1"), res.Endpoint)
	assert.Len(t, res.Records, 3)
	require.Len(t, f.Calls(), 1)
	assert.Equal(t, mirror.Endpoint("E1"), f.Calls()[0].endpoint)
	assert.Equal(t, nitter.ModeUser, f.Calls()[0].mode)
	assert.Empty(t, rec.Calls())
}

func TestFetchAccountFallsBackInOrder(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alpha@E1": failing,
		"alpha@E2": empty,
		"alpha@E3": failing,
		"alpha@E4": posts(2, "a"),
		"alpha@E5": posts(2, "never"),
	})
	s, rec, tl := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1", "E2", "E3", "E4", "E5"), 10)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, mirror.Endpoint("E4"), res.Endpoint)
	assert.Equal(t, 4, res.Attempts)

	calls := f.Calls()
	require.Len(t, calls, 4)
	for i, want := range []string{"E1", "E2", "E3", "E4"} {
		assert.Equal(t, mirror.Endpoint(want), calls[i].endpoint)
	}

	// cooldown only after the two failures, never after the empty answer
	assert.Equal(t, []time.Duration{testCooldown, testCooldown}, rec.Calls())
	assert.True(t, tl.HasMessage("No tweets found for alpha using E2"))
	assert.Equal(t, 2, tl.CountMessages("Error scraping alpha with"))

	var errMsg logger.LogMessage
	for _, m := range tl.GetMessagesByLevel("ERROR") {
		errMsg = m
		break
	}
	assert.Equal(t, "server_error", errMsg.Fields["error_type"])
}

func TestFetchAccountExhausted(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alpha@E1": failing,
		"alpha@E2": empty,
	})
	s, rec, tl := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1", "E2"), 10)

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Empty(t, res.Endpoint)
	assert.Empty(t, res.Records)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, rec.Calls(), 1)
	assert.True(t, tl.HasMessage("Failed to scrape tweets from alpha with all 2 instances"))
}

func TestFetchAccountCooldownAfterLastFailure(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){"alpha@E1": failing})
	s, rec, _ := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1"), 10)

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Equal(t, []time.Duration{testCooldown}, rec.Calls())
}

func TestFetchAccountEmptyPool(t *testing.T) {
	f := scripted(nil)
	s, _, _ := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", nil, 10)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Empty(t, f.Calls())
}

func TestEffectiveCount(t *testing.T) {
	assert.Equal(t, 100, EffectiveCount(0))
	assert.Equal(t, 100, EffectiveCount(-7))
	assert.Equal(t, 1, EffectiveCount(1))
	assert.Equal(t, 250, EffectiveCount(250))
}

func TestZeroCountUsesDefault(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){"alpha@E1": posts(1, "a")})
	s, _, tl := newTestScraper(t, f)

	s.Run(context.Background(), []string{"alpha"}, endpoints("E1"), 0, testDelay)
	require.Len(t, f.Calls(), 1)
	assert.Equal(t, 100, f.Calls()[0].count)
	assert.True(t, tl.HasMessage("using default value of 100"))

	f2 := scripted(map[string]func() (*nitter.Timeline, error){"alpha@E1": posts(1, "a")})
	s2, _, _ := newTestScraper(t, f2)
	s2.FetchAccount(context.Background(), "alpha", endpoints("E1"), 0)
	assert.Equal(t, 100, f2.Calls()[0].count)
}

func TestRunDelayCalledBetweenAccountsOnly(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d accounts", n), func(t *testing.T) {
			accounts := make([]string, n)
			for i := range accounts {
				accounts[i] = fmt.Sprintf("user%d", i)
			}
			// every account fails everywhere, pacing must still apply
			f := &fakeFetcher{respond: func(string, mirror.Endpoint) (*nitter.Timeline, error) { return failing() }}
			s, rec, _ := newTestScraper(t, f)

			res := s.Run(context.Background(), accounts, endpoints("E1"), 10, testDelay)

			assert.Equal(t, n-1, rec.Count(testDelay))
			assert.Equal(t, n, rec.Count(testCooldown))
			assert.Len(t, res.Accounts, n)
			assert.Empty(t, res.Records)
			assert.False(t, res.Interrupted)
		})
	}
}

func TestRunTagsRecordsWithNormalizedAccount(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alice@E1": posts(2, "a"),
		"bob@E1":   posts(1, "b"),
	})
	s, _, _ := newTestScraper(t, f)

	res := s.Run(context.Background(), []string{"@alice", " @@bob "}, endpoints("E1"), 10, testDelay)

	require.Len(t, res.Records, 3)
	assert.Equal(t, models.Account("alice"), res.Records[0].Username())
	assert.Equal(t, models.Account("alice"), res.Records[1].Username())
	assert.Equal(t, models.Account("bob"), res.Records[2].Username())
	for _, r := range res.Records {
		v, _ := r.Value(models.ScrapedUsernameField)
		assert.False(t, strings.HasPrefix(v.(string), "@"))
	}

	text, _ := res.Records[0].Value("text")
	assert.Equal(t, "a-0", text)
	assert.Equal(t, "alice", f.Calls()[0].term)
}

func TestRunEndToEndFallbackScenario(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"a@E1": posts(2, "a"),
		"b@E1": empty,
		"b@E2": posts(1, "b"),
	})
	s, rec, _ := newTestScraper(t, f)

	res := s.Run(context.Background(), []string{"a", "@b"}, endpoints("E1", "E2"), 10, testDelay)

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, fetchCall{"a", "E1", nitter.ModeUser, 10}, calls[0])
	assert.Equal(t, fetchCall{"b", "E1", nitter.ModeUser, 10}, calls[1])
	assert.Equal(t, fetchCall{"b", "E2", nitter.ModeUser, 10}, calls[2])

	require.Len(t, res.Records, 3)
	assert.Equal(t, models.Account("a"), res.Records[0].Username())
	assert.Equal(t, models.Account("a"), res.Records[1].Username())
	assert.Equal(t, models.Account("b"), res.Records[2].Username())

	require.Len(t, res.Accounts, 2)
	assert.Equal(t, mirror.Endpoint("E1"), res.Accounts[0].Endpoint)
	assert.Equal(t, mirror.Endpoint("E2"), res.Accounts[1].Endpoint)
	assert.Equal(t, []time.Duration{testDelay}, rec.Calls())
}

func TestRunNoAccounts(t *testing.T) {
	f := scripted(nil)
	s, rec, tl := newTestScraper(t, f)

	res := s.Run(context.Background(), nil, endpoints("E1", "E2"), 10, testDelay)

	assert.Empty(t, res.Records)
	assert.Empty(t, res.Accounts)
	assert.Empty(t, f.Calls())
	assert.Empty(t, rec.Calls())
	assert.True(t, tl.HasMessage("No accounts provided for scraping"))
	assert.False(t, tl.HasError())
	_, err := uuid.Parse(res.RunID)
	assert.NoError(t, err)
}

func TestRunAllEndpointsFailThenSinkHasNothingToSave(t *testing.T) {
	f := &fakeFetcher{respond: func(string, mirror.Endpoint) (*nitter.Timeline, error) { return failing() }}
	s, _, _ := newTestScraper(t, f)

	res := s.Run(context.Background(), []string{"a", "b"}, endpoints("E1", "E2"), 10, testDelay)

	assert.Empty(t, res.Records)
	assert.Len(t, f.Calls(), 4)
	assert.Equal(t, 2, res.CountStatus(StatusExhausted))

	path := filepath.Join(t.TempDir(), "out.csv")
	err := storage.NewCSVSink().Save(context.Background(), res.Records, path)
	assert.ErrorIs(t, err, storage.ErrNothingToSave)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchAccountPanickingMirrorFallsBack(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alpha@E1": func() (*nitter.Timeline, error) { panic("unexpected markup") },
		"alpha@E2": posts(2, "a"),
	})
	s, rec, tl := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1", "E2"), 10)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, mirror.Endpoint("E2"), res.Endpoint)
	assert.Len(t, res.Records, 2)
	assert.Len(t, f.Calls(), 2)
	assert.Equal(t, 1, rec.Count(testCooldown))
	assert.NoError(t, res.Err)
	assert.True(t, tl.HasMessage("Error scraping alpha with E1"))
}

func TestFetchAccountClearsErrorAfterSuccess(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alpha@E1": failing,
		"alpha@E2": posts(1, "a"),
	})
	s, _, _ := newTestScraper(t, f)

	res := s.FetchAccount(context.Background(), "alpha", endpoints("E1", "E2"), 10)

	assert.Equal(t, StatusOK, res.Status)
	assert.NoError(t, res.Err)
}

func TestRunPanickingMirrorOnEveryEndpointExhausts(t *testing.T) {
	f := &fakeFetcher{respond: func(term string, endpoint mirror.Endpoint) (*nitter.Timeline, error) {
		if term == "boom" {
			panic("unexpected markup")
		}
		return posts(1, term)()
	}}
	s, rec, _ := newTestScraper(t, f)

	res := s.Run(context.Background(), []string{"boom", "fine"}, endpoints("E1", "E2"), 10, testDelay)

	require.Len(t, res.Accounts, 2)
	assert.Equal(t, StatusExhausted, res.Accounts[0].Status)
	assert.Contains(t, res.Accounts[0].Err.Error(), "unexpected markup")
	assert.Equal(t, StatusOK, res.Accounts[1].Status)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 2, rec.Count(testCooldown))
	assert.Equal(t, 1, rec.Count(testDelay))
}

// panickyMetrics fails while an account is being processed
type panickyMetrics struct{ nopMetrics }

func (panickyMetrics) ObserveAttempt(endpoint, outcome string) {
	if endpoint == "boom.example.net" {
		panic("metrics backend gone")
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	f := &fakeFetcher{respond: func(term string, endpoint mirror.Endpoint) (*nitter.Timeline, error) {
		return posts(1, term)()
	}}
	tl := logger.NewTestLogger()
	rec := &pacing.Recorder{}
	s, err := New(config.DefaultConfig(), WithFetcher(f), WithSleeper(rec), WithLogger(tl), WithMetrics(panickyMetrics{}))
	require.NoError(t, err)

	res := s.Run(context.Background(), []string{"boom", "fine"}, endpoints("https://boom.example.net"), 10, testDelay)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, StatusPanicked, res.Accounts[0].Status)
	assert.Contains(t, res.Accounts[0].Err.Error(), "metrics backend gone")
	assert.Empty(t, res.Accounts[0].Records)

	res = s.Run(context.Background(), []string{"fine"}, endpoints("https://fine.example.net"), 10, testDelay)
	assert.Equal(t, StatusOK, res.Accounts[0].Status)
	assert.True(t, tl.HasError())
}

func TestRunCancelledDuringPacing(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"a@E1": posts(2, "a"),
		"b@E1": posts(2, "b"),
	})
	s, rec, _ := newTestScraper(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.OnSleep = func(call int, d time.Duration) error {
		if d == testDelay {
			cancel()
		}
		return nil
	}

	res := s.Run(ctx, []string{"a", "b", "c"}, endpoints("E1"), 10, testDelay)

	assert.True(t, res.Interrupted)
	assert.Len(t, res.Records, 2, "records gathered before the interrupt are kept")
	require.Len(t, res.Accounts, 3)
	assert.Equal(t, StatusOK, res.Accounts[0].Status)
	assert.Equal(t, StatusSkipped, res.Accounts[1].Status)
	assert.Equal(t, StatusSkipped, res.Accounts[2].Status)
	assert.Len(t, f.Calls(), 1)
}

func TestRunCancelledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{respond: func(term string, endpoint mirror.Endpoint) (*nitter.Timeline, error) {
		cancel()
		return nil, context.Canceled
	}}
	s, rec, tl := newTestScraper(t, f)

	res := s.Run(ctx, []string{"a", "b"}, endpoints("E1", "E2"), 10, testDelay)

	assert.True(t, res.Interrupted)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, StatusInterrupted, res.Accounts[0].Status)
	assert.Equal(t, StatusSkipped, res.Accounts[1].Status)
	assert.Len(t, f.Calls(), 1, "no fallback once cancelled")
	assert.Empty(t, rec.Calls())
	assert.True(t, tl.HasMessage("Scrape interrupted"))
}

func TestRunSkipsBlankAccount(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){"a@E1": posts(1, "a")})
	s, rec, _ := newTestScraper(t, f)

	res := s.Run(context.Background(), []string{" @ ", "a"}, endpoints("E1"), 10, testDelay)

	require.Len(t, res.Accounts, 2)
	assert.Equal(t, StatusSkipped, res.Accounts[0].Status)
	assert.Len(t, f.Calls(), 1)
	assert.Equal(t, 1, rec.Count(testDelay))
}

type countingMetrics struct {
	attempts map[string]int
	accounts map[string]int
	records  int
	duration time.Duration
}

func (m *countingMetrics) ObserveAttempt(endpoint, outcome string) { m.attempts[outcome]++ }
func (m *countingMetrics) ObserveAccount(status string)            { m.accounts[status]++ }
func (m *countingMetrics) AddRecords(n int)                        { m.records += n }
func (m *countingMetrics) ObserveRunDuration(d time.Duration)      { m.duration = d }

func TestRunReportsMetrics(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"a@https://e1.example.net": failing,
		"a@https://e2.example.net": posts(2, "a"),
	})
	m := &countingMetrics{attempts: map[string]int{}, accounts: map[string]int{}}
	cfg := config.DefaultConfig()
	s, err := New(cfg, WithFetcher(f), WithSleeper(&pacing.Recorder{}), WithLogger(logger.NewNopLogger()), WithMetrics(m))
	require.NoError(t, err)

	s.Run(context.Background(), []string{"a", "b"}, endpoints("https://e1.example.net", "https://e2.example.net"), 10, 0)

	assert.Equal(t, 1, m.attempts["error"])
	assert.Equal(t, 1, m.attempts["success"])
	assert.Equal(t, 2, m.attempts["empty"])
	assert.Equal(t, 1, m.accounts["ok"])
	assert.Equal(t, 1, m.accounts["exhausted"])
	assert.Equal(t, 2, m.records)
}

func TestRunConfiguredAgainstMirror(t *testing.T) {
	page := `<div class="timeline"><div class="timeline-item"><a class="tweet-link" href="/x/status/1#m"></a>
		<div class="tweet-content">hello</div></div></div>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Accounts = []string{"@x"}
	cfg.Endpoints = []string{server.URL}
	cfg.Fetch.RequestsPerMinute = 0
	s, err := New(cfg, WithSleeper(&pacing.Recorder{}), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	res, err := s.RunConfigured(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, models.Account("x"), res.Records[0].Username())

	cfg.Endpoints = nil
	_, err = s.RunConfigured(context.Background())
	assert.Error(t, err)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetch.Mode = "rss"
	_, err := New(cfg, WithLogger(logger.NewNopLogger()))
	assert.Error(t, err)
}

func TestRunCallsAccountHook(t *testing.T) {
	f := scripted(map[string]func() (*nitter.Timeline, error){
		"alice@E1": posts(3, "a"),
	})
	var seen []AccountResult
	s, err := New(config.DefaultConfig(),
		WithFetcher(f),
		WithSleeper(&pacing.Recorder{}),
		WithLogger(logger.NewNopLogger()),
		WithAccountHook(func(r AccountResult) { seen = append(seen, r) }),
	)
	require.NoError(t, err)

	s.Run(context.Background(), []string{"alice", "bob"}, endpoints("E1"), 10, 0)

	require.Len(t, seen, 2)
	assert.Equal(t, StatusOK, seen[0].Status)
	assert.Len(t, seen[0].Records, 3)
	assert.Equal(t, models.Account("bob"), seen[1].Account)
	assert.Equal(t, StatusExhausted, seen[1].Status)
}
