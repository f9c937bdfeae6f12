package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
	"signalbot/internal/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	e := New(st, DefaultParams())
	if err := e.ColdStart(context.Background()); err != nil {
		t.Fatalf("cold start: %v", err)
	}
	return e, st
}

func sampleAt(ts time.Time, last, vwap string) models.Sample {
	return models.Sample{
		Ts:     ts,
		Symbol: "XRPUSD",
		Last:   decimal.RequireFromString(last),
		Vwap:   decimal.RequireFromString(vwap),
	}
}

func TestColdStart_NoPriorState_StartsFlatWithInitialCapital(t *testing.T) {
	e, _ := newTestEngine(t)
	state := e.State()
	if state.Position != models.PositionFlat {
		t.Fatalf("expected flat, got %s", state.Position)
	}
	if !state.Capital.Equal(DefaultParams().InitialCapital) {
		t.Errorf("expected initial capital, got %s", state.Capital)
	}
}

// E1. Basic buy.
func TestE1_BasicBuy(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	events, err := e.Process(ctx, sampleAt(base, "1.000", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events at parity price, got %d", len(events))
	}

	events, err = e.Process(ctx, sampleAt(base.Add(time.Minute), "0.980", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != models.TradeBuy {
		t.Fatalf("expected single BUY event, got %+v", events)
	}
	if !events[0].Price.Equal(decimal.RequireFromString("0.980")) {
		t.Errorf("expected buy price 0.980, got %s", events[0].Price)
	}

	state := e.State()
	if state.Position != models.PositionLong {
		t.Fatalf("expected long position after buy, got %s", state.Position)
	}
	wantTrailingStop := decimal.RequireFromString("0.97510")
	if !state.TrailingStop.Equal(wantTrailingStop) {
		t.Errorf("expected trailing_stop=%s, got %s", wantTrailingStop, state.TrailingStop)
	}
}

// E2. Take-profit exit.
func TestE2_TakeProfitExit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))

	events, err := e.Process(ctx, sampleAt(base.Add(time.Minute), "0.995", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != models.TradeSell {
		t.Fatalf("expected single SELL event, got %+v", events)
	}
	if !events[0].Pnl.IsPositive() {
		t.Errorf("expected positive pnl, got %s", events[0].Pnl)
	}

	wantPct := decimal.RequireFromString("0.01530612244897959183")
	diff := events[0].PctChange.Sub(wantPct).Abs()
	if diff.GreaterThan(decimal.RequireFromString("0.0001")) {
		t.Errorf("expected pct_change ~%s, got %s", wantPct, events[0].PctChange)
	}

	if e.State().Position != models.PositionFlat {
		t.Errorf("expected flat after take-profit exit")
	}
}

// E3. Trailing stop exit.
func TestE3_TrailingStopExit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))
	e.Process(ctx, sampleAt(base.Add(1*time.Minute), "0.990", "1.000"))
	e.Process(ctx, sampleAt(base.Add(2*time.Minute), "0.992", "1.000"))

	wantTrailingStop := decimal.RequireFromString("0.98704")
	if !e.State().TrailingStop.Equal(wantTrailingStop) {
		t.Fatalf("expected trailing_stop=%s before exit sample, got %s", wantTrailingStop, e.State().TrailingStop)
	}

	events, err := e.Process(ctx, sampleAt(base.Add(3*time.Minute), "0.9870", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != models.TradeSell {
		t.Fatalf("expected single SELL event from trailing stop, got %+v", events)
	}
	if !events[0].Price.Equal(decimal.RequireFromString("0.9870")) {
		t.Errorf("expected sell at 0.9870, got %s", events[0].Price)
	}
}

// E4. Stop-loss exit.
func TestE4_StopLossExit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))

	events, err := e.Process(ctx, sampleAt(base.Add(time.Minute), "0.9604", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != models.TradeSell {
		t.Fatalf("expected single SELL event from stop loss, got %+v", events)
	}
	if !events[0].Pnl.IsNegative() {
		t.Errorf("expected negative pnl, got %s", events[0].Pnl)
	}
	if e.State().LastLossTime == nil {
		t.Errorf("expected last_loss_time to be set after a losing exit")
	}
}

// E5. Cooldown.
func TestE5_Cooldown(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))
	e.Process(ctx, sampleAt(base.Add(time.Minute), "0.9604", "1.000")) // stop-loss exit at base+1m

	lossTime := base.Add(time.Minute)

	events, err := e.Process(ctx, sampleAt(lossTime.Add(29*time.Minute), "0.980", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no BUY within cooldown, got %+v", events)
	}

	events, err = e.Process(ctx, sampleAt(lossTime.Add(31*time.Minute), "0.980", "1.000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != models.TradeBuy {
		t.Fatalf("expected BUY after cooldown elapsed, got %+v", events)
	}
}

func TestIdempotentProcessing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	sample := sampleAt(base, "0.980", "1.000")
	events1, err := e.Process(ctx, sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stateAfterFirst := e.State()

	events2, err := e.Process(ctx, sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events2) != 0 {
		t.Fatalf("expected no events on replayed sample, got %+v", events2)
	}
	if !stateAfterFirst.Capital.Equal(e.State().Capital) {
		t.Errorf("expected state unchanged on replay")
	}
	_ = events1
}

func TestTrailingStopMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))

	prices := []string{"0.985", "0.990", "0.988", "0.995", "0.991"}
	var prevStop decimal.Decimal
	for i, p := range prices {
		e.Process(ctx, sampleAt(base.Add(time.Duration(i+1)*time.Minute), p, "1.000"))
		state := e.State()
		if state.Position != models.PositionLong {
			break
		}
		if i > 0 && state.TrailingStop.LessThan(prevStop) {
			t.Fatalf("trailing stop regressed: %s -> %s", prevStop, state.TrailingStop)
		}
		prevStop = *state.TrailingStop
	}
}

func TestCapitalConservationOnSell(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Now().UTC()

	e.Process(ctx, sampleAt(base, "0.980", "1.000"))
	capitalBeforeSell := e.State().Capital

	events, _ := e.Process(ctx, sampleAt(base.Add(time.Minute), "0.995", "1.000"))
	if len(events) != 1 {
		t.Fatalf("expected one sell event, got %d", len(events))
	}

	wantCapital := capitalBeforeSell.Add(events[0].Pnl)
	if !wantCapital.Equal(e.State().Capital) {
		t.Errorf("expected capital_after = capital_before + pnl (%s), got %s", wantCapital, e.State().Capital)
	}
}
