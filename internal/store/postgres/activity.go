package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

const activitySelectCols = `ts, activity_type, price, summary_text`

func scanActivityRow(row pgx.Row) (models.BotActivity, error) {
	var a models.BotActivity
	var kind string

	err := row.Scan(&a.Ts, &kind, &a.Price, &a.SummaryText)
	if err != nil {
		return models.BotActivity{}, err
	}
	a.Kind = models.ActivityKind(kind)
	return a, nil
}

// AppendActivity inserts a non-trade publication ledger row.
func (c *Client) AppendActivity(ctx context.Context, a models.BotActivity) error {
	const query = `INSERT INTO twitter_bot_activity (ts, activity_type, price, summary_text) VALUES ($1, $2, $3, $4)`

	_, err := c.pool.Exec(ctx, query, a.Ts, string(a.Kind), a.Price, a.SummaryText)
	if err != nil {
		return fmt.Errorf("postgres: append activity: %w: %v", errs.ErrStoreWrite, err)
	}
	return nil
}

// LatestActivity returns the most recent ledger row of the given kind.
func (c *Client) LatestActivity(ctx context.Context, kind models.ActivityKind) (models.BotActivity, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT `+activitySelectCols+` FROM twitter_bot_activity WHERE activity_type = $1 ORDER BY ts DESC LIMIT 1`,
		string(kind))

	a, err := scanActivityRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.BotActivity{}, errs.ErrNotFound
		}
		return models.BotActivity{}, fmt.Errorf("postgres: latest activity %s: %w", kind, err)
	}
	return a, nil
}
