package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

// GetAlert returns chatID's price alert.
func (c *Client) GetAlert(ctx context.Context, chatID string) (models.PriceAlert, error) {
	var a models.PriceAlert
	err := c.pool.QueryRow(ctx, `SELECT target_price FROM price_alerts WHERE chat_id = $1`, chatID).Scan(&a.TargetPrice)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.PriceAlert{}, errs.ErrNotFound
		}
		return models.PriceAlert{}, fmt.Errorf("postgres: get alert %s: %w", chatID, err)
	}
	return a, nil
}

// PutAlert upserts chatID's price alert.
func (c *Client) PutAlert(ctx context.Context, chatID string, a models.PriceAlert) error {
	const query = `
		INSERT INTO price_alerts (chat_id, target_price) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET target_price = EXCLUDED.target_price`

	_, err := c.pool.Exec(ctx, query, chatID, a.TargetPrice)
	if err != nil {
		return fmt.Errorf("postgres: put alert %s: %w: %v", chatID, errs.ErrStoreWrite, err)
	}
	return nil
}
