// Package mirror holds the ordered list of front-end mirrors a scrape falls
// back across. Order is priority: the first entry is tried first for every
// account.
package mirror

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyPool is returned when no endpoints are configured.
var ErrEmptyPool = errors.New("endpoint pool is empty")

// Endpoint is the base URL of a mirror, without a trailing slash.
type Endpoint string

func (e Endpoint) String() string {
	return string(e)
}

// Host returns the endpoint's host, used as a short label in logs and metrics.
func (e Endpoint) Host() string {
	u, err := url.Parse(string(e))
	if err != nil || u.Host == "" {
		return string(e)
	}
	return u.Host
}

// ParseEndpoint validates raw as an absolute http(s) URL.
func ParseEndpoint(raw string) (Endpoint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("endpoint is blank")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", raw)
	}

	return Endpoint(strings.TrimRight(trimmed, "/")), nil
}

// Pool is an ordered, immutable list of endpoints. Duplicates are kept.
type Pool struct {
	endpoints []Endpoint
}

// NewPool parses every entry of raw. All malformed entries are reported
// together.
func NewPool(raw []string) (*Pool, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPool
	}

	var errs []error
	endpoints := make([]Endpoint, 0, len(raw))
	for _, r := range raw {
		e, err := ParseEndpoint(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		endpoints = append(endpoints, e)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Pool{endpoints: endpoints}, nil
}

// Endpoints returns a copy of the endpoints in priority order.
func (p *Pool) Endpoints() []Endpoint {
	out := make([]Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// Len returns the number of endpoints.
func (p *Pool) Len() int {
	return len(p.endpoints)
}
