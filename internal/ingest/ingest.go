// Package ingest runs the periodic poller that turns the external ticker
// into a durable, monotonic stream of samples in Store.
package ingest

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"signalbot/internal/clock"
	"signalbot/internal/errs"
	"signalbot/internal/metrics"
	"signalbot/internal/models"
	"signalbot/internal/store"
)

// Fetcher is the subset of ticker.Client the Ingestor depends on.
type Fetcher interface {
	Fetch(ctx context.Context) (models.Sample, error)
}

const (
	pollPeriod  = 60 * time.Second
	backoffBase = 2 * time.Second
	backoffJitter = 1 * time.Second
	maxAttempts = 5
)

// Ingestor polls Fetcher on a fixed cadence and appends normalized,
// deduplicated samples to Store. It runs as one logical worker and holds
// no shared mutable state beyond Store.
type Ingestor struct {
	fetcher Fetcher
	st      store.Store
	symbol  string
	clock   clock.Clock
}

// New constructs an Ingestor for symbol, polling fetcher and writing to st.
func New(fetcher Fetcher, st store.Store, symbol string, c clock.Clock) *Ingestor {
	if c == nil {
		c = clock.Real{}
	}
	return &Ingestor{fetcher: fetcher, st: st, symbol: symbol, clock: c}
}

// Run loops until ctx is cancelled, polling once per tick.
func (ing *Ingestor) Run(ctx context.Context) {
	ing.pollOnce(ctx)

	ticker := ing.clock.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			ing.pollOnce(ctx)
		}
	}
}

// pollOnce fetches, retries with backoff on failure, and appends exactly
// one sample (or skips the cycle on exhausted retries / duplicate ts).
func (ing *Ingestor) pollOnce(ctx context.Context) {
	var sample models.Sample
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		sample, err = ing.fetcher.Fetch(ctx)
		if err == nil {
			break
		}

		if !errors.Is(err, errs.ErrNetworkFail) && !errors.Is(err, errs.ErrMalformedPayload) {
			break
		}

		log.Printf("ingest: poll attempt %d failed: %v", attempt+1, err)
		metrics.IngestPolls.WithLabelValues("retry").Inc()

		if attempt == maxAttempts-1 {
			break
		}

		backoff := time.Duration(1<<uint(attempt))*backoffBase + jitter()
		select {
		case <-ctx.Done():
			return
		case <-ing.clock.After(backoff):
		}
	}

	if err != nil {
		log.Printf("ingest: cycle skipped after %d attempts: %v", maxAttempts, err)
		metrics.IngestPolls.WithLabelValues("skip").Inc()
		return
	}

	if err := ing.appendOrdered(ctx, sample); err != nil {
		log.Printf("ingest: append failed: %v", err)
		metrics.IngestPolls.WithLabelValues("skip").Inc()
		return
	}
}

// appendOrdered enforces ordering (discard non-advancing ts) and computes
// pct_change against the previously stored sample before inserting.
func (ing *Ingestor) appendOrdered(ctx context.Context, sample models.Sample) error {
	latest, err := ing.st.LatestSample(ctx, ing.symbol)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hasPrior := err == nil
	if hasPrior && !sample.Ts.After(latest.Ts) {
		metrics.IngestPolls.WithLabelValues("duplicate_discard").Inc()
		return nil
	}

	if hasPrior && !latest.Last.IsZero() {
		pct := sample.Last.Sub(latest.Last).Div(latest.Last)
		sample.PctChange = &pct
	}

	if err := ing.st.AppendSample(ctx, sample); err != nil {
		return err
	}

	metrics.IngestPolls.WithLabelValues("success").Inc()
	return nil
}

func jitter() time.Duration {
	return time.Duration(rand.Int64N(int64(2*backoffJitter))) - backoffJitter
}
