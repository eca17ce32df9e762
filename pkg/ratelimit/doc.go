// Package ratelimit caps how fast a single fetcher hits the mirrors.
//
// A timeline fetch can take several page requests against one mirror. The
// limiters here bound those requests independently of the fixed pacing the
// scraper applies between accounts.
//
// Available Implementations:
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - Default for fetchers, built by New(requestsPerMinute)
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Selected with the "token_bucket" strategy in NewFactory
//
// Unlimited:
//   - Allows everything; used when requests_per_minute is 0
//
// Usage:
//
//	limiter := ratelimit.New(30)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // cancelled
//	}
//	// Proceed with request
package ratelimit
