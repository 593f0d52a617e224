package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/sysconfig"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFXRefresh pulls the day's exchange rate from the providers.
	TaskFXRefresh = "fx:refresh"
	// TaskProfitsBackfill recomputes the daily profit records.
	TaskProfitsBackfill = "profits:backfill"
)

// FXRefreshPayload configures a rate refresh run.
type FXRefreshPayload struct {
	Force bool `json:"force"`
}

// ProfitsBackfillPayload bounds a backfill run to the trailing N days.
type ProfitsBackfillPayload struct {
	Days int `json:"days"`
}

// NewFXRefreshTask constructs an Asynq task.
func NewFXRefreshTask(force bool) (*asynq.Task, error) {
	data, err := json.Marshal(FXRefreshPayload{Force: force})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFXRefresh, data), nil
}

// NewProfitsBackfillTask constructs an Asynq task.
func NewProfitsBackfillTask(days int) (*asynq.Task, error) {
	data, err := json.Marshal(ProfitsBackfillPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProfitsBackfill, data), nil
}

// RateRefresher is the fx surface the refresh job needs.
type RateRefresher interface {
	Refresh(ctx context.Context) (fx.Rate, error)
}

// ConfigSource gates the automatic refresh on the stored setting.
type ConfigSource interface {
	Get(ctx context.Context) (sysconfig.Config, error)
}

// FXRefreshJob refreshes the exchange rate on schedule.
type FXRefreshJob struct {
	rates  RateRefresher
	config ConfigSource
	logger *slog.Logger
}

// NewFXRefreshJob constructs the job.
func NewFXRefreshJob(rates RateRefresher, config ConfigSource, logger *slog.Logger) *FXRefreshJob {
	return &FXRefreshJob{rates: rates, config: config, logger: logger}
}

// Handle processes TaskFXRefresh tasks. Scheduled runs respect the
// fx_auto_refresh setting; forced runs (operator-triggered) do not.
func (j *FXRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload FXRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if !payload.Force {
		cfg, err := j.config.Get(ctx)
		if err != nil {
			return err
		}
		if !cfg.FXAutoRefresh {
			j.logger.Info("fx refresh skipped, auto refresh disabled")
			return nil
		}
	}
	rate, err := j.rates.Refresh(ctx)
	if err != nil {
		j.logger.Error("fx refresh failed", "error", err)
		return err
	}
	j.logger.Info("fx rate refreshed", "rate", rate.Rate, "source", rate.Source)
	return nil
}

// ProfitBackfiller is the profits surface the backfill job needs.
type ProfitBackfiller interface {
	Backfill(ctx context.Context, from, to time.Time) (int, error)
}

// ProfitsBackfillJob recomputes daily profit records.
type ProfitsBackfillJob struct {
	profits ProfitBackfiller
	logger  *slog.Logger
}

// NewProfitsBackfillJob constructs the job.
func NewProfitsBackfillJob(profits ProfitBackfiller, logger *slog.Logger) *ProfitsBackfillJob {
	return &ProfitsBackfillJob{profits: profits, logger: logger}
}

// Handle processes TaskProfitsBackfill tasks.
func (j *ProfitsBackfillJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ProfitsBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.Days
	if days <= 0 {
		days = 2
	}
	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)
	n, err := j.profits.Backfill(ctx, from, to)
	if err != nil {
		j.logger.Error("profits backfill failed", "error", err)
		return err
	}
	j.logger.Info("profits backfilled", "days", n)
	return nil
}
