package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/clock"
	"signalbot/internal/errs"
	"signalbot/internal/models"
	"signalbot/internal/store/memory"
)

type fakeFetcher struct {
	results []result
	calls   int
}

type result struct {
	sample models.Sample
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context) (models.Sample, error) {
	r := f.results[f.calls]
	if f.calls < len(f.results)-1 {
		f.calls++
	}
	return r.sample, r.err
}

// fakeClock fires After immediately, so retry-backoff tests run without
// real sleeps.
type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Now().UTC() }

func (fakeClock) After(time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- time.Now().UTC()
	return c
}

func (fakeClock) NewTicker(d time.Duration) clock.Ticker { return clock.Real{}.NewTicker(d) }

func TestAppendOrdered_FirstSample_NoPctChange(t *testing.T) {
	st := memory.New()
	fetcher := &fakeFetcher{results: []result{
		{sample: models.Sample{Ts: time.Now().UTC(), Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)}},
	}}
	ing := New(fetcher, st, "XRPUSD", nil)

	if err := ing.appendOrdered(context.Background(), fetcher.results[0].sample); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := st.LatestSample(context.Background(), "XRPUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PctChange != nil {
		t.Errorf("expected nil pct_change on first sample, got %v", got.PctChange)
	}
}

func TestAppendOrdered_ComputesPctChange(t *testing.T) {
	st := memory.New()
	ing := New(&fakeFetcher{}, st, "XRPUSD", nil)
	base := time.Now().UTC()

	ing.appendOrdered(context.Background(), models.Sample{Ts: base, Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.0)})
	ing.appendOrdered(context.Background(), models.Sample{Ts: base.Add(time.Minute), Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.1)})

	got, err := st.LatestSample(context.Background(), "XRPUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PctChange == nil {
		t.Fatalf("expected non-nil pct_change on second sample")
	}
	want := decimal.NewFromFloat(0.1)
	if !got.PctChange.Equal(want) {
		t.Errorf("expected pct_change=%s, got %s", want, got.PctChange)
	}
}

func TestAppendOrdered_DiscardsNonAdvancingTimestamp(t *testing.T) {
	st := memory.New()
	ing := New(&fakeFetcher{}, st, "XRPUSD", nil)
	base := time.Now().UTC()

	ing.appendOrdered(context.Background(), models.Sample{Ts: base, Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.0)})
	ing.appendOrdered(context.Background(), models.Sample{Ts: base, Symbol: "XRPUSD", Last: decimal.NewFromFloat(2.0)})

	got, err := st.LatestSample(context.Background(), "XRPUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Last.Equal(decimal.NewFromFloat(1.0)) {
		t.Errorf("expected the first sample to remain latest, got last=%s", got.Last)
	}
}

func TestPollOnce_SkipsCycleAfterExhaustedRetries(t *testing.T) {
	st := memory.New()
	fetcher := &fakeFetcher{results: []result{
		{err: errs.ErrNetworkFail},
	}}
	ing := New(fetcher, st, "XRPUSD", fakeClock{})

	ing.pollOnce(context.Background())

	_, err := st.LatestSample(context.Background(), "XRPUSD")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected no sample appended after exhausted retries, got err=%v", err)
	}
}

func TestPollOnce_SucceedsAfterTransientFailure(t *testing.T) {
	st := memory.New()
	sample := models.Sample{Ts: time.Now().UTC(), Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)}
	fetcher := &fakeFetcher{results: []result{
		{err: errs.ErrNetworkFail},
		{sample: sample},
	}}
	ing := New(fetcher, st, "XRPUSD", fakeClock{})

	ing.pollOnce(context.Background())

	got, err := st.LatestSample(context.Background(), "XRPUSD")
	if err != nil {
		t.Fatalf("expected a sample to be appended after recovery, got err=%v", err)
	}
	if !got.Last.Equal(sample.Last) {
		t.Errorf("expected last=%s, got %s", sample.Last, got.Last)
	}
}
