package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

func TestAppendAndLatestSample(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.LatestSample(ctx, "XRPUSD")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any sample, got %v", err)
	}

	now := time.Now().UTC()
	sample := models.Sample{Ts: now, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)}
	if err := s.AppendSample(ctx, sample); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.LatestSample(ctx, "XRPUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Last.Equal(sample.Last) {
		t.Errorf("expected last=%s, got %s", sample.Last, got.Last)
	}
}

func TestSamplesSince_OrderedAndFiltered(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for _, offset := range []time.Duration{3 * time.Minute, 1 * time.Minute, 5 * time.Minute} {
		s.AppendSample(ctx, models.Sample{Ts: base.Add(offset), Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.0)})
	}

	out, err := s.SamplesSince(ctx, "XRPUSD", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
	if !out[0].Ts.Before(out[1].Ts) {
		t.Errorf("expected samples ordered by ts ascending")
	}
}

func TestBotStateRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.LoadBotState(ctx)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any state saved, got %v", err)
	}

	state := models.BotState{Capital: decimal.NewFromInt(1000), Position: models.PositionFlat}
	if err := s.SaveBotState(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.LoadBotState(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Position != models.PositionFlat {
		t.Errorf("expected flat position, got %s", got.Position)
	}
}

func TestLatestActivity_FiltersByKind(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	s.AppendActivity(ctx, models.BotActivity{Ts: now, Kind: models.ActivityHourlyUpdate})
	s.AppendActivity(ctx, models.BotActivity{Ts: now.Add(time.Minute), Kind: models.ActivityDailySummary})

	got, err := s.LatestActivity(ctx, models.ActivityHourlyUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != models.ActivityHourlyUpdate {
		t.Errorf("expected hourly_update kind, got %s", got.Kind)
	}

	_, err = s.LatestActivity(ctx, models.ActivityVolatilityAlert)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unseen kind, got %v", err)
	}
}

func TestPortfolioAndAlertUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.PutPortfolio(ctx, "chat1", models.Portfolio{Capital: decimal.NewFromInt(500)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := s.GetPortfolio(ctx, "chat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Capital.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected capital 500, got %s", p.Capital)
	}

	if err := s.PutAlert(ctx, "chat1", models.PriceAlert{TargetPrice: decimal.NewFromFloat(1.2)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := s.GetAlert(ctx, "chat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.TargetPrice.Equal(decimal.NewFromFloat(1.2)) {
		t.Errorf("expected target 1.2, got %s", a.TargetPrice)
	}
}
