// Package httputil provides retry helpers for package index clients.
//
// Transient failures (network errors, 5xx and 429 responses) are wrapped in
// [RetryableError] by the caller; [Retry] re-runs the operation with
// exponential backoff and gives up immediately on any other error.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.fetch(ctx, name)
//	})
//
// Defaults: 3 attempts, 1 second initial delay doubling per attempt. Probes
// that run under a short per-package deadline should use [Retry] with a
// smaller delay so the deadline is not spent sleeping.
package httputil
