// Package errs holds the sentinel errors shared across the service, in
// place of exceptions-for-control-flow: every external call returns one of
// these (wrapped with context via fmt.Errorf's %w) instead of a bespoke
// error string.
package errs

import "errors"

var (
	// ErrNetworkFail marks a transient I/O failure against an external HTTP
	// dependency (ticker, microblog, chat). Always retryable.
	ErrNetworkFail = errors.New("network request failed")

	// ErrMalformedPayload marks a response that parsed as JSON/HTTP but
	// failed validation (missing or non-numeric required fields).
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrRateLimited marks a provider-side rate limit response.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreWrite marks a failed write to the durable Store.
	ErrStoreWrite = errors.New("store write failed")

	// ErrInvariant marks a detected invariant violation in BotState; the
	// caller resets to a safe (flat, ledger-recovered) state on this error.
	ErrInvariant = errors.New("invariant violation")

	// ErrConfig marks a fatal configuration error, the only class that
	// halts startup rather than being recovered locally.
	ErrConfig = errors.New("configuration error")

	// ErrNotFound marks a missing row in the Store (no BotState, no
	// portfolio for a chat id, etc).
	ErrNotFound = errors.New("not found")
)
