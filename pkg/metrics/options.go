// Package metrics records scrape-run statistics as Prometheus metrics and
// exports them in the text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(c *Collector) {
		if namespace != "" {
			c.namespace = namespace
		}
	}
}

// WithConstLabels adds labels attached to every metric, such as a run id.
func WithConstLabels(labels map[string]string) Option {
	return func(c *Collector) {
		if labels != nil {
			c.constLabels = labels
		}
	}
}

// WithRegistry sets the registry metrics are registered on.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Collector) {
		if registry != nil {
			c.registry = registry
		}
	}
}
