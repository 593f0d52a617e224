package profits

import (
	"context"
	"log/slog"
	"time"
)

// Store is the persistence surface the service works against.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	List(ctx context.Context, from, to time.Time) ([]Record, error)
	DailyAggregates(ctx context.Context, from, to time.Time) ([]Record, error)
}

// Service maintains and reports daily profit records.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Backfill recomputes and stores the daily records for [from, to). It is
// idempotent, so the nightly job and a manual rerun after cancellations
// produce the same rows.
func (s *Service) Backfill(ctx context.Context, from, to time.Time) (int, error) {
	days, err := s.store.DailyAggregates(ctx, from, to)
	if err != nil {
		return 0, err
	}
	for _, rec := range days {
		if err := s.store.Upsert(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(days), nil
}

// BackfillDay recomputes a single day.
func (s *Service) BackfillDay(ctx context.Context, day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	_, err := s.Backfill(ctx, start, start.AddDate(0, 0, 1))
	return err
}

// Report returns the stored records for the period plus their totals.
func (s *Service) Report(ctx context.Context, from, to time.Time) ([]Record, Summary, error) {
	records, err := s.store.List(ctx, from, to)
	if err != nil {
		return nil, Summary{}, err
	}
	var sum Summary
	for _, r := range records {
		sum.TotalRevenue += r.Revenue
		sum.TotalCost += r.Cost
		sum.TotalProfit += r.Profit
	}
	return records, sum, nil
}
