// Package ratelimit paces outbound requests to the search engine and image
// hosts.
//
// Two implementations sit behind the Limiter interface:
//   - TokenBucket, backed by golang.org/x/time/rate, spreads requests evenly
//     and allows an initial burst.
//   - SlidingWindow counts requests in a moving window.
//
// New picks one from config.RateLimitConfig; a zero requests_per_minute
// returns Unlimited, which never blocks.
package ratelimit
