// Package strategy implements the single-position flat/long finite state
// machine that drives buy/sell signals from the live sample stream.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/errs"
	"signalbot/internal/models"
	"signalbot/internal/store"
	"signalbot/internal/ticker"
)

var one = decimal.NewFromInt(1)

// Engine is the single in-memory FSM instance. It is called only from the
// app's dedicated engine loop (not from the Event Router's loop), serially,
// so its state needs no lock of its own; Store writes remain individually
// atomic.
type Engine struct {
	st     store.Store
	params Params
	state  models.BotState
}

// New constructs an Engine. Call ColdStart before the first Process.
func New(st store.Store, params Params) *Engine {
	return &Engine{st: st, params: params}
}

// State returns a copy of the engine's current snapshot.
func (e *Engine) State() models.BotState {
	return e.state
}

// ColdStart recovers the engine's state on startup: from the persisted
// BotState if one exists, otherwise from the most recent BUY row in the
// trade ledger, otherwise flat with configured initial capital.
func (e *Engine) ColdStart(ctx context.Context) error {
	state, err := e.st.LoadBotState(ctx)
	if err == nil {
		e.state = state
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("strategy: cold start: %w", err)
	}

	lastSampleTs := e.latestSampleTs(ctx)

	trade, err := e.st.LatestTradeSignal(ctx)
	if err == nil && trade.Kind == models.TradeBuy {
		entryPrice := trade.Price
		// The trade ledger row has no trailing_stop column, so recovery
		// falls back to entry price as the highest-since-entry watermark.
		highest := entryPrice
		trailingStop := entryPrice.Mul(one.Sub(e.params.TrailPct))
		entryTime := trade.Ts

		lastProcessed := entryTime
		if lastSampleTs != nil {
			lastProcessed = *lastSampleTs
		}

		e.state = models.BotState{
			Capital:           trade.UpdatedCapital,
			Position:          models.PositionLong,
			EntryPrice:        &entryPrice,
			TrailingStop:      &trailingStop,
			HighestSinceEntry: &highest,
			EntryTime:         &entryTime,
			LastProcessedTs:   lastProcessed,
		}
		return nil
	}

	lastProcessed := time.Time{}
	if lastSampleTs != nil {
		lastProcessed = *lastSampleTs
	}

	e.state = models.BotState{
		Capital:         e.params.InitialCapital,
		Position:        models.PositionFlat,
		LastProcessedTs: lastProcessed,
	}
	return nil
}

func (e *Engine) latestSampleTs(ctx context.Context) *time.Time {
	sample, err := e.st.LatestSample(ctx, ticker.Symbol)
	if err != nil {
		return nil
	}
	ts := sample.Ts
	return &ts
}

// Process evaluates one sample against the current state and returns the
// events produced (0, 1, or 2). It is idempotent on sample.Ts: calling it
// twice with a sample whose Ts does not advance past the last processed
// one is a no-op. The resulting BotState snapshot is persisted atomically
// before Process returns.
func (e *Engine) Process(ctx context.Context, sample models.Sample) ([]models.Event, error) {
	if !sample.Ts.After(e.state.LastProcessedTs) {
		return nil, nil
	}
	e.state.LastProcessedTs = sample.Ts

	var events []models.Event

	if e.state.Position == models.PositionFlat {
		if ev, bought := e.tryBuy(sample); bought {
			events = append(events, ev)
		}
	}

	if e.state.Position == models.PositionLong {
		if ev, sold := e.evaluateLong(sample); sold {
			events = append(events, ev)
		}
	}

	if err := e.st.SaveBotState(ctx, e.state); err != nil {
		return events, fmt.Errorf("strategy: persist state: %w", err)
	}

	for _, ev := range events {
		if err := e.st.AppendTradeSignal(ctx, tradeSignalFromEvent(ev)); err != nil {
			return events, fmt.Errorf("strategy: append trade signal: %w", err)
		}
	}

	return events, nil
}

func tradeSignalFromEvent(ev models.Event) models.TradeSignal {
	t := models.TradeSignal{
		Ts:             ev.Ts,
		Kind:           ev.Kind,
		Price:          ev.Price,
		UpdatedCapital: ev.UpdatedCapital,
	}
	if ev.Kind == models.TradeSell {
		pnl := ev.Pnl
		pct := ev.PctChange
		held := ev.TimeHeld
		t.Pnl = &pnl
		t.PctChange = &pct
		t.TimeHeld = &held
	}
	return t
}

func (e *Engine) tryBuy(sample models.Sample) (models.Event, bool) {
	if sample.Vwap.IsZero() {
		return models.Event{}, false
	}
	dev := sample.Last.Sub(sample.Vwap).Div(sample.Vwap)
	if dev.GreaterThan(e.params.OversoldThreshold) {
		return models.Event{}, false
	}

	if e.state.LastLossTime != nil {
		cooldownEnd := e.state.LastLossTime.Add(time.Duration(e.params.LossCooldown) * time.Minute)
		if sample.Ts.Before(cooldownEnd) {
			return models.Event{}, false
		}
	}

	buyFee := e.state.Capital.Mul(e.params.FeePct)
	e.state.Capital = e.state.Capital.Sub(buyFee)

	last := sample.Last
	trailingStop := last.Mul(one.Sub(e.params.TrailPct))

	e.state.Position = models.PositionLong
	e.state.EntryPrice = &last
	e.state.HighestSinceEntry = &last
	e.state.TrailingStop = &trailingStop
	e.state.EntryTime = &sample.Ts

	return models.Event{
		Kind:           models.TradeBuy,
		Price:          last,
		Fee:            buyFee,
		UpdatedCapital: e.state.Capital,
		Ts:             sample.Ts,
	}, true
}

func (e *Engine) evaluateLong(sample models.Sample) (models.Event, bool) {
	last := sample.Last

	if last.GreaterThan(*e.state.HighestSinceEntry) {
		highest := last
		e.state.HighestSinceEntry = &highest
		trailingStop := highest.Mul(one.Sub(e.params.TrailPct))
		e.state.TrailingStop = &trailingStop
	}

	entry := *e.state.EntryPrice
	takeProfitPrice := entry.Mul(one.Add(e.params.TakeProfitPct))
	stopLossPrice := entry.Mul(one.Add(e.params.StopLossPct))

	hitTrailingStop := last.LessThanOrEqual(*e.state.TrailingStop)
	hitTakeProfit := last.GreaterThanOrEqual(takeProfitPrice)
	hitStopLoss := last.LessThanOrEqual(stopLossPrice)

	if !hitTrailingStop && !hitTakeProfit && !hitStopLoss {
		return models.Event{}, false
	}

	capitalAtEntry := e.state.Capital
	pct := last.Sub(entry).Div(entry)
	gross := capitalAtEntry.Mul(pct)
	sellFee := capitalAtEntry.Mul(e.params.FeePct)
	pnl := gross.Sub(sellFee)

	e.state.Capital = e.state.Capital.Add(pnl)

	var lastLossTime *time.Time
	if pnl.IsNegative() {
		ts := sample.Ts
		lastLossTime = &ts
	}
	e.state.LastLossTime = lastLossTime

	held := sample.Ts.Sub(*e.state.EntryTime)

	ev := models.Event{
		Kind:           models.TradeSell,
		Price:          last,
		Fee:            sellFee,
		Pnl:            pnl,
		PctChange:      pct,
		TimeHeld:       held,
		UpdatedCapital: e.state.Capital,
		Ts:             sample.Ts,
	}

	e.state.Position = models.PositionFlat
	e.state.EntryPrice = nil
	e.state.TrailingStop = nil
	e.state.HighestSinceEntry = nil
	e.state.EntryTime = nil

	return ev, true
}
