package fx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// Repository provides PostgreSQL backed persistence for exchange rates.
type Repository interface {
	Upsert(ctx context.Context, rate Rate) (Rate, error)
	SetCurrent(ctx context.Context, rateID int64) error
	Current(ctx context.Context) (Rate, error)
	Latest(ctx context.Context) (Rate, error)
	List(ctx context.Context, limit int) ([]Rate, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Upsert inserts the rate for its date, replacing an existing row for the
// same day so a manual correction or a later refresh wins.
func (r *repository) Upsert(ctx context.Context, rate Rate) (Rate, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO fx_rates (usd_ves, rate_date, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (rate_date) DO UPDATE SET usd_ves = EXCLUDED.usd_ves, source = EXCLUDED.source
		RETURNING id, usd_ves, rate_date, source, created_at`,
		rate.Rate, rate.RateDate, rate.Source)
	var out Rate
	if err := row.Scan(&out.ID, &out.Rate, &out.RateDate, &out.Source, &out.CreatedAt); err != nil {
		return Rate{}, err
	}
	return out, nil
}

func (r *repository) SetCurrent(ctx context.Context, rateID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fx_current_rate (id, rate_id) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET rate_id = EXCLUDED.rate_id`, rateID)
	return err
}

func (r *repository) Current(ctx context.Context) (Rate, error) {
	return r.scanOne(ctx, `
		SELECT f.id, f.usd_ves, f.rate_date, f.source, f.created_at
		FROM fx_current_rate c
		JOIN fx_rates f ON f.id = c.rate_id
		WHERE c.id = 1`)
}

func (r *repository) Latest(ctx context.Context) (Rate, error) {
	return r.scanOne(ctx, `
		SELECT id, usd_ves, rate_date, source, created_at
		FROM fx_rates
		ORDER BY rate_date DESC
		LIMIT 1`)
}

func (r *repository) List(ctx context.Context, limit int) ([]Rate, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, usd_ves, rate_date, source, created_at
		FROM fx_rates
		ORDER BY rate_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.Rate, &rate.RateDate, &rate.Source, &rate.CreatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx, query, args...).Scan(&rate.ID, &rate.Rate, &rate.RateDate, &rate.Source, &rate.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.ErrNotFound
		}
		return Rate{}, err
	}
	return rate, nil
}

// Day truncates a timestamp to its calendar date in local time.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
