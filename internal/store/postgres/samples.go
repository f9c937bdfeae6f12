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

const sampleSelectCols = `ts, symbol, last_price, open_price, high_price, low_price,
	vwap, volume, bid, ask, percent_change_24h, percent_change`

func scanSampleRow(row pgx.Row) (models.Sample, error) {
	var s models.Sample
	var pctChange *decimal.Decimal

	err := row.Scan(
		&s.Ts, &s.Symbol, &s.Last, &s.Open, &s.High, &s.Low,
		&s.Vwap, &s.Volume, &s.Bid, &s.Ask, &s.PctChange24h, &pctChange,
	)
	if err != nil {
		return models.Sample{}, err
	}
	s.PctChange = pctChange
	return s, nil
}

func scanSampleRows(rows pgx.Rows) ([]models.Sample, error) {
	var out []models.Sample
	for rows.Next() {
		var s models.Sample
		var pctChange *decimal.Decimal

		if err := rows.Scan(
			&s.Ts, &s.Symbol, &s.Last, &s.Open, &s.High, &s.Low,
			&s.Vwap, &s.Volume, &s.Bid, &s.Ask, &s.PctChange24h, &pctChange,
		); err != nil {
			return nil, err
		}
		s.PctChange = pctChange
		out = append(out, s)
	}
	return out, rows.Err()
}

// AppendSample inserts a new ticker observation.
func (c *Client) AppendSample(ctx context.Context, s models.Sample) error {
	const query = `
		INSERT INTO crypto_prices (
			ts, symbol, last_price, open_price, high_price, low_price,
			vwap, volume, bid, ask, percent_change_24h, percent_change
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := c.pool.Exec(ctx, query,
		s.Ts, s.Symbol, s.Last, s.Open, s.High, s.Low,
		s.Vwap, s.Volume, s.Bid, s.Ask, s.PctChange24h, s.PctChange,
	)
	if err != nil {
		return fmt.Errorf("postgres: append sample %s@%s: %w: %v", s.Symbol, s.Ts, errs.ErrStoreWrite, err)
	}
	return nil
}

// LatestSample returns the most recently stored sample for symbol.
func (c *Client) LatestSample(ctx context.Context, symbol string) (models.Sample, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT `+sampleSelectCols+` FROM crypto_prices WHERE symbol = $1 ORDER BY ts DESC LIMIT 1`, symbol)

	s, err := scanSampleRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Sample{}, errs.ErrNotFound
		}
		return models.Sample{}, fmt.Errorf("postgres: latest sample %s: %w", symbol, err)
	}
	return s, nil
}

// SamplesSince returns all samples for symbol with ts >= t0, ascending.
func (c *Client) SamplesSince(ctx context.Context, symbol string, t0 time.Time) ([]models.Sample, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+sampleSelectCols+` FROM crypto_prices WHERE symbol = $1 AND ts >= $2 ORDER BY ts ASC`,
		symbol, t0)
	if err != nil {
		return nil, fmt.Errorf("postgres: samples since %s: %w", symbol, err)
	}
	defer rows.Close()

	samples, err := scanSampleRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan samples since %s: %w", symbol, err)
	}
	return samples, nil
}
