package profits

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	aggregates []Record
	stored     map[string]Record
}

func (f *fakeStore) Upsert(_ context.Context, rec Record) error {
	if f.stored == nil {
		f.stored = map[string]Record{}
	}
	f.stored[rec.RecordDate.Format("2006-01-02")] = rec
	return nil
}

func (f *fakeStore) List(_ context.Context, from, to time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range f.stored {
		if !rec.RecordDate.Before(from) && rec.RecordDate.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) DailyAggregates(context.Context, time.Time, time.Time) ([]Record, error) {
	return f.aggregates, nil
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestBackfillUpsertsEveryDay(t *testing.T) {
	store := &fakeStore{aggregates: []Record{
		{RecordDate: day("2026-08-01"), Revenue: 100, Cost: 60, Profit: 40},
		{RecordDate: day("2026-08-02"), Revenue: 50, Cost: 30, Profit: 20},
	}}
	svc := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := svc.Backfill(context.Background(), day("2026-08-01"), day("2026-08-03"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, store.stored, 2)
	require.Equal(t, 40.0, store.stored["2026-08-01"].Profit)
}

func TestBackfillIsIdempotent(t *testing.T) {
	store := &fakeStore{aggregates: []Record{
		{RecordDate: day("2026-08-01"), Revenue: 100, Cost: 60, Profit: 40},
	}}
	svc := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Backfill(context.Background(), day("2026-08-01"), day("2026-08-02"))
	require.NoError(t, err)

	// A cancellation shrinks the day; the rerun replaces the row.
	store.aggregates[0] = Record{RecordDate: day("2026-08-01"), Revenue: 80, Cost: 48, Profit: 32}
	_, err = svc.Backfill(context.Background(), day("2026-08-01"), day("2026-08-02"))
	require.NoError(t, err)
	require.Len(t, store.stored, 1)
	require.Equal(t, 32.0, store.stored["2026-08-01"].Profit)
}

func TestReportTotals(t *testing.T) {
	store := &fakeStore{stored: map[string]Record{
		"2026-08-01": {RecordDate: day("2026-08-01"), Revenue: 100, Cost: 60, Profit: 40},
		"2026-08-02": {RecordDate: day("2026-08-02"), Revenue: 50, Cost: 30, Profit: 20},
	}}
	svc := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	records, sum, err := svc.Report(context.Background(), day("2026-08-01"), day("2026-08-03"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 150.0, sum.TotalRevenue)
	require.Equal(t, 90.0, sum.TotalCost)
	require.Equal(t, 60.0, sum.TotalProfit)
}
