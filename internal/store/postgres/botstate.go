package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

const botStateSelectCols = `capital, position, entry_price, trailing_stop_price,
	highest_price, last_timestamp, entry_time, last_loss_time`

func scanBotStateRow(row pgx.Row) (models.BotState, error) {
	var s models.BotState
	var position string

	err := row.Scan(
		&s.Capital, &position, &s.EntryPrice, &s.TrailingStop,
		&s.HighestSinceEntry, &s.LastProcessedTs, &s.EntryTime, &s.LastLossTime,
	)
	if err != nil {
		return models.BotState{}, err
	}
	s.Position = models.Position(position)
	return s, nil
}

// LoadBotState returns the current strategy snapshot.
func (c *Client) LoadBotState(ctx context.Context) (models.BotState, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+botStateSelectCols+` FROM bot_state WHERE id = 1`)

	s, err := scanBotStateRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.BotState{}, errs.ErrNotFound
		}
		return models.BotState{}, fmt.Errorf("postgres: load bot state: %w", err)
	}
	return s, nil
}

// SaveBotState persists the strategy snapshot with latest-wins semantics.
// Before writing, it audits the new trailing stop against the previously
// stored value: while long, trailing_stop must never regress. A
// regression is logged at error level and the write proceeds anyway,
// since refusing to persist a live strategy decision is worse than
// recording the anomaly.
func (c *Client) SaveBotState(ctx context.Context, s models.BotState) error {
	prev, err := c.LoadBotState(ctx)
	if err == nil && prev.Position == models.PositionLong && s.Position == models.PositionLong &&
		prev.TrailingStop != nil && s.TrailingStop != nil && s.TrailingStop.LessThan(*prev.TrailingStop) {
		log.Printf("[STATE_REGRESSION] trailing_stop regressed from %s to %s while long", prev.TrailingStop, s.TrailingStop)
	}

	const query = `
		INSERT INTO bot_state (
			id, schema_version, capital, position, entry_price, trailing_stop_price,
			highest_price, last_timestamp, entry_time, last_loss_time
		) VALUES (1, 1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			capital             = EXCLUDED.capital,
			position            = EXCLUDED.position,
			entry_price         = EXCLUDED.entry_price,
			trailing_stop_price = EXCLUDED.trailing_stop_price,
			highest_price       = EXCLUDED.highest_price,
			last_timestamp      = EXCLUDED.last_timestamp,
			entry_time          = EXCLUDED.entry_time,
			last_loss_time      = EXCLUDED.last_loss_time`

	_, err = c.pool.Exec(ctx, query,
		s.Capital, string(s.Position), s.EntryPrice, s.TrailingStop,
		s.HighestSinceEntry, s.LastProcessedTs, s.EntryTime, s.LastLossTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: save bot state: %w: %v", errs.ErrStoreWrite, err)
	}
	return nil
}
