// Package store defines the durable-persistence contract shared by the
// Ingestor, Strategy Engine, Event Router, and Query Responders. Two
// implementations exist: postgres (production) and memory (tests).
package store

import (
	"context"
	"time"

	"signalbot/internal/models"
)

// Store is the capability set every component depends on. Writes are
// individually atomic; no cross-table transactions are required.
type Store interface {
	// AppendSample inserts a new ticker observation. Callers are
	// responsible for ordering/dedup checks against LatestSample first.
	AppendSample(ctx context.Context, s models.Sample) error

	// LatestSample returns the most recently stored sample for symbol,
	// or errs.ErrNotFound if none exists.
	LatestSample(ctx context.Context, symbol string) (models.Sample, error)

	// SamplesSince returns all samples for symbol with Ts >= t0, ordered
	// by Ts ascending.
	SamplesSince(ctx context.Context, symbol string, t0 time.Time) ([]models.Sample, error)

	// SaveBotState persists the current strategy snapshot, replacing any
	// prior snapshot (latest-wins semantics).
	SaveBotState(ctx context.Context, s models.BotState) error

	// LoadBotState returns the current strategy snapshot, or
	// errs.ErrNotFound if the engine has never run.
	LoadBotState(ctx context.Context) (models.BotState, error)

	// AppendTradeSignal inserts a BUY/SELL ledger row.
	AppendTradeSignal(ctx context.Context, t models.TradeSignal) error

	// LatestTradeSignal returns the most recent ledger row, or
	// errs.ErrNotFound if none exists.
	LatestTradeSignal(ctx context.Context) (models.TradeSignal, error)

	// AppendActivity inserts a non-trade publication ledger row.
	AppendActivity(ctx context.Context, a models.BotActivity) error

	// LatestActivity returns the most recent ledger row of the given
	// kind, or errs.ErrNotFound if none exists.
	LatestActivity(ctx context.Context, kind models.ActivityKind) (models.BotActivity, error)

	// GetPortfolio returns chatID's shadow position, or errs.ErrNotFound
	// if the user never ran /setcapital.
	GetPortfolio(ctx context.Context, chatID string) (models.Portfolio, error)

	// PutPortfolio upserts chatID's shadow position.
	PutPortfolio(ctx context.Context, chatID string, p models.Portfolio) error

	// GetAlert returns chatID's price alert, or errs.ErrNotFound if none
	// is set.
	GetAlert(ctx context.Context, chatID string) (models.PriceAlert, error)

	// PutAlert upserts chatID's price alert.
	PutAlert(ctx context.Context, chatID string, a models.PriceAlert) error

	// Close releases any underlying connections.
	Close()
}
