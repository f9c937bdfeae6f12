package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

const portfolioSelectCols = `capital, position, entry_price, cumulative_pnl`

func scanPortfolioRow(row pgx.Row) (models.Portfolio, error) {
	var p models.Portfolio
	var position string

	err := row.Scan(&p.Capital, &position, &p.EntryPrice, &p.CumulativePnl)
	if err != nil {
		return models.Portfolio{}, err
	}
	p.Position = models.Position(position)
	return p, nil
}

// GetPortfolio returns chatID's shadow position.
func (c *Client) GetPortfolio(ctx context.Context, chatID string) (models.Portfolio, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+portfolioSelectCols+` FROM portfolios WHERE chat_id = $1`, chatID)

	p, err := scanPortfolioRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Portfolio{}, errs.ErrNotFound
		}
		return models.Portfolio{}, fmt.Errorf("postgres: get portfolio %s: %w", chatID, err)
	}
	return p, nil
}

// PutPortfolio upserts chatID's shadow position.
func (c *Client) PutPortfolio(ctx context.Context, chatID string, p models.Portfolio) error {
	const query = `
		INSERT INTO portfolios (chat_id, capital, position, entry_price, cumulative_pnl)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			capital        = EXCLUDED.capital,
			position       = EXCLUDED.position,
			entry_price    = EXCLUDED.entry_price,
			cumulative_pnl = EXCLUDED.cumulative_pnl`

	_, err := c.pool.Exec(ctx, query, chatID, p.Capital, string(p.Position), p.EntryPrice, p.CumulativePnl)
	if err != nil {
		return fmt.Errorf("postgres: put portfolio %s: %w: %v", chatID, errs.ErrStoreWrite, err)
	}
	return nil
}
