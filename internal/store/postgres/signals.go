package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

const tradeSignalSelectCols = `ts, signal_type, price, profit_loss, percent_change, time_held_secs, updated_capital`

func scanTradeSignalRow(row pgx.Row) (models.TradeSignal, error) {
	var t models.TradeSignal
	var kind string
	var pnl, pctChange *decimal.Decimal
	var heldSecs *int64

	err := row.Scan(&t.Ts, &kind, &t.Price, &pnl, &pctChange, &heldSecs, &t.UpdatedCapital)
	if err != nil {
		return models.TradeSignal{}, err
	}
	t.Kind = models.TradeKind(kind)
	t.Pnl = pnl
	t.PctChange = pctChange
	if heldSecs != nil {
		d := time.Duration(*heldSecs) * time.Second
		t.TimeHeld = &d
	}
	return t, nil
}

// AppendTradeSignal inserts a BUY/SELL ledger row.
func (c *Client) AppendTradeSignal(ctx context.Context, t models.TradeSignal) error {
	const query = `
		INSERT INTO trade_signals (ts, signal_type, price, profit_loss, percent_change, time_held_secs, updated_capital)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var heldSecs *int64
	if t.TimeHeld != nil {
		secs := int64(t.TimeHeld.Seconds())
		heldSecs = &secs
	}

	_, err := c.pool.Exec(ctx, query, t.Ts, string(t.Kind), t.Price, t.Pnl, t.PctChange, heldSecs, t.UpdatedCapital)
	if err != nil {
		return fmt.Errorf("postgres: append trade signal: %w: %v", errs.ErrStoreWrite, err)
	}
	return nil
}

// LatestTradeSignal returns the most recent ledger row.
func (c *Client) LatestTradeSignal(ctx context.Context) (models.TradeSignal, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+tradeSignalSelectCols+` FROM trade_signals ORDER BY ts DESC LIMIT 1`)

	t, err := scanTradeSignalRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.TradeSignal{}, errs.ErrNotFound
		}
		return models.TradeSignal{}, fmt.Errorf("postgres: latest trade signal: %w", err)
	}
	return t, nil
}
