package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the metrics of one scrape run. A nil *Collector is valid
// and records nothing.
type Collector struct {
	namespace   string
	constLabels map[string]string
	registry    *prometheus.Registry

	fetchAttempts *prometheus.CounterVec
	accounts      *prometheus.CounterVec
	records       prometheus.Counter
	runDuration   prometheus.Gauge
}

// NewCollector creates a Collector on its own registry unless WithRegistry
// is given.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		namespace: "nitterscraper",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	factory := promauto.With(c.registry)
	c.fetchAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        "fetch_attempts_total",
		Help:        "Mirror requests by endpoint host and outcome.",
		ConstLabels: c.constLabels,
	}, []string{"endpoint", "outcome"})
	c.accounts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        "accounts_total",
		Help:        "Accounts processed by final status.",
		ConstLabels: c.constLabels,
	}, []string{"status"})
	c.records = factory.NewCounter(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        "records_total",
		Help:        "Records collected.",
		ConstLabels: c.constLabels,
	})
	c.runDuration = factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   c.namespace,
		Name:        "run_duration_seconds",
		Help:        "Wall-clock duration of the run.",
		ConstLabels: c.constLabels,
	})

	return c
}

// ObserveAttempt counts one mirror request
func (c *Collector) ObserveAttempt(endpoint, outcome string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveAccount counts one finished account
func (c *Collector) ObserveAccount(status string) {
	if c == nil {
		return
	}
	c.accounts.WithLabelValues(status).Inc()
}

// AddRecords adds n collected records
func (c *Collector) AddRecords(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.records.Add(float64(n))
}

// ObserveRunDuration sets the run duration
func (c *Collector) ObserveRunDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.runDuration.Set(d.Seconds())
}

// WriteTextfile writes all metrics to path in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
