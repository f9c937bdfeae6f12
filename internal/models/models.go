// Package models defines the durable entities shared across the signal
// service: ticker samples, strategy state, the trade and activity ledgers,
// and per-user portfolios/alerts.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the Strategy Engine's FSM state for the single tracked asset.
type Position string

const (
	PositionFlat Position = "flat"
	PositionLong Position = "long"
)

// TradeKind distinguishes ledger rows in TradeSignal.
type TradeKind string

const (
	TradeBuy  TradeKind = "BUY"
	TradeSell TradeKind = "SELL"
)

// ActivityKind distinguishes non-trade publications in BotActivity.
type ActivityKind string

const (
	ActivityHourlyUpdate    ActivityKind = "hourly_update"
	ActivityNHourSummary    ActivityKind = "n_hour_summary"
	ActivityDailySummary    ActivityKind = "daily_summary"
	ActivityVolatilityAlert ActivityKind = "volatility_alert"
)

// Sample is a single ticker observation. Append-only; at most one per
// (Symbol, Ts), and Ts is non-decreasing per symbol within one Ingestor run.
type Sample struct {
	Ts           time.Time
	Symbol       string
	Last         decimal.Decimal
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Vwap         decimal.Decimal
	Volume       decimal.Decimal
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	PctChange24h decimal.Decimal
	PctChange    *decimal.Decimal // nil if no prior sample for this symbol
}

// BotState is the Strategy Engine's crash-safe snapshot.
//
// Invariants (enforced by the engine, not by this struct):
//
//	Position == flat => EntryPrice, TrailingStop, HighestSinceEntry, EntryTime == nil
//	Position == long => 0 < TrailingStop <= HighestSinceEntry, EntryPrice <= HighestSinceEntry
type BotState struct {
	Capital           decimal.Decimal
	Position          Position
	EntryPrice        *decimal.Decimal
	TrailingStop      *decimal.Decimal
	HighestSinceEntry *decimal.Decimal
	LastProcessedTs   time.Time
	EntryTime         *time.Time
	LastLossTime      *time.Time
}

// TradeSignal is an append-only ledger row recording a BUY or SELL.
type TradeSignal struct {
	Ts             time.Time
	Kind           TradeKind
	Price          decimal.Decimal
	Pnl            *decimal.Decimal
	PctChange      *decimal.Decimal
	TimeHeld       *time.Duration
	UpdatedCapital decimal.Decimal
}

// BotActivity is an append-only ledger row recording a non-trade publication.
type BotActivity struct {
	Ts          time.Time
	Kind        ActivityKind
	Price       decimal.Decimal
	SummaryText *string
}

// Portfolio is a per-chat-user shadow position, opted into via /setcapital.
type Portfolio struct {
	Capital       decimal.Decimal
	Position      Position
	EntryPrice    *decimal.Decimal
	CumulativePnl decimal.Decimal
}

// PriceAlert is a per-chat-user target price watch.
type PriceAlert struct {
	TargetPrice decimal.Decimal
}

// Event is something the Strategy Engine emits from a single Process call.
type Event struct {
	Kind           TradeKind
	Price          decimal.Decimal
	Fee            decimal.Decimal
	Pnl            decimal.Decimal
	PctChange      decimal.Decimal
	TimeHeld       time.Duration
	UpdatedCapital decimal.Decimal
	Ts             time.Time
}
