// Package dedupe coalesces concurrent identical tool requests.
//
// A Deduplicator keys requests by fingerprint and guarantees at most one
// executor invocation per key at a time: concurrent callers attach to the
// pending execution and all observe the same result or the same error.
// Successful results are additionally held in a short-TTL cache so
// immediate repeats skip execution entirely. Failures are never cached.
package dedupe
