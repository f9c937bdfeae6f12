// Package clock is the seam that lets a periodic loop (the Ingestor) be
// driven by a fake clock in tests instead of a real time.Ticker,
// per Design Notes on replacing bare sleep(60)-style polling loops.
package clock

import "time"

// Clock abstracts wall-clock access so tests can step time deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors the subset of *time.Ticker callers need.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock, backed by the standard library.
type Real struct{}

func (Real) Now() time.Time                         { return time.Now().UTC() }
func (Real) After(d time.Duration) <-chan time.Time  { return time.After(d) }
func (Real) NewTicker(d time.Duration) Ticker        { return &realTicker{t: time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
