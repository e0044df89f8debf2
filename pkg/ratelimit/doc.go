// Package ratelimit provides request rate limiting for the web client.
//
// The TokenBucket limiter holds a fixed number of tokens that refill
// after a configured period, which suits a polite crawl: a burst of
// requests followed by a pause. The Unlimited limiter is a no-op used
// when no rate limit is configured.
//
// All limiters implement the Limiter interface:
//   - Allow() bool - check if a request is allowed
//   - Wait() - block until a request is allowed
//   - Reset() - reset the limiter state
package ratelimit
