package profits

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for profit records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes one day's aggregates, replacing any previous snapshot for
// that date. Re-running a backfill after a cancellation keeps the figures
// honest.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profit_records (record_date, revenue, cost, profit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_date) DO UPDATE
		SET revenue = EXCLUDED.revenue,
		    cost = EXCLUDED.cost,
		    profit = EXCLUDED.profit,
		    updated_at = now()`,
		rec.RecordDate, rec.Revenue, rec.Cost, rec.Profit)
	return err
}

// List returns the records within [from, to), oldest first.
func (r *Repository) List(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, record_date, revenue, cost, profit, updated_at
		FROM profit_records
		WHERE record_date >= $1 AND record_date < $2
		ORDER BY record_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RecordDate, &rec.Revenue, &rec.Cost, &rec.Profit, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DailyAggregates recomputes revenue and cost per day from the sales in
// [from, to). Cancelled sales are excluded and cost uses the current
// purchase price of each product.
func (r *Repository) DailyAggregates(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', s.sold_at)::date,
		       COALESCE(SUM(li.line_subtotal), 0),
		       COALESCE(SUM(li.quantity * p.purchase_price), 0)
		FROM sales s
		JOIN line_items li
		  ON (s.delivery_note_id IS NOT NULL AND li.delivery_note_id = s.delivery_note_id)
		  OR (s.delivery_note_id IS NULL AND li.invoice_id = s.invoice_id)
		JOIN products p ON p.id = li.product_id
		WHERE s.status <> 'cancelled'
		  AND s.sold_at >= $1 AND s.sold_at < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RecordDate, &rec.Revenue, &rec.Cost); err != nil {
			return nil, err
		}
		rec.Profit = rec.Revenue - rec.Cost
		out = append(out, rec)
	}
	return out, rows.Err()
}
