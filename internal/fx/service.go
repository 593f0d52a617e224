package fx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/shared"
)

// Service manages exchange rates and the current-rate pointer.
type Service struct {
	repo      Repository
	providers []Provider
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService constructs a Service.
func NewService(repo Repository, providers []Provider, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, providers: providers, logger: logger, metrics: metrics}
}

// Current returns the rate the rest of the system converts with. The second
// return is false when no rate has ever been registered; callers then render
// bolívar figures as zero rather than inventing a rate.
func (s *Service) Current(ctx context.Context) (Rate, bool) {
	rate, err := s.repo.Current(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("load current rate", "error", err)
		}
		return Rate{}, false
	}
	return rate, true
}

// List returns recent rates, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Rate, error) {
	return s.repo.List(ctx, limit)
}

// Refresh walks the provider chain and registers the first quote obtained.
// When every provider fails it falls back to the last known rate, and as a
// final resort to DefaultRate, so conversion never silently stops working.
func (s *Service) Refresh(ctx context.Context) (Rate, error) {
	today := Day(time.Now())
	for _, p := range s.providers {
		value, err := p.Fetch(ctx)
		if err != nil {
			s.logger.Warn("fx provider failed", "provider", p.Name(), "error", err)
			continue
		}
		rate, err := s.register(ctx, Rate{Rate: value, RateDate: today, Source: p.Name()})
		if err != nil {
			return Rate{}, err
		}
		s.metrics.RecordFXRefresh("ok")
		s.logger.Info("exchange rate refreshed", "provider", p.Name(), "rate", value)
		return rate, nil
	}

	last, err := s.repo.Latest(ctx)
	if err == nil {
		s.metrics.RecordFXRefresh("stale")
		s.logger.Warn("all fx providers failed, keeping last known rate", "rate", last.Rate, "rate_date", last.RateDate)
		if err := s.repo.SetCurrent(ctx, last.ID); err != nil {
			return Rate{}, err
		}
		return last, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Rate{}, err
	}

	rate, err := s.register(ctx, Rate{Rate: DefaultRate, RateDate: today, Source: "default"})
	if err != nil {
		return Rate{}, err
	}
	s.metrics.RecordFXRefresh("default")
	s.logger.Warn("no providers and no history, registered default rate", "rate", DefaultRate)
	return rate, nil
}

// SetManual registers a rate entered by hand and makes it current.
func (s *Service) SetManual(ctx context.Context, value float64, date time.Time) (Rate, error) {
	if value <= 0 {
		return Rate{}, shared.NewBusinessError("La tasa debe ser mayor que cero.", nil)
	}
	if date.IsZero() {
		date = time.Now()
	}
	return s.register(ctx, Rate{Rate: value, RateDate: Day(date), Source: "manual"})
}

func (s *Service) register(ctx context.Context, rate Rate) (Rate, error) {
	saved, err := s.repo.Upsert(ctx, rate)
	if err != nil {
		return Rate{}, err
	}
	if err := s.repo.SetCurrent(ctx, saved.ID); err != nil {
		return Rate{}, err
	}
	return saved, nil
}
