package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/sysconfig"
)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(context.Context) (fx.Rate, error) {
	s.calls++
	return fx.Rate{Rate: 37.12, Source: "pydolarve"}, s.err
}

type stubConfig struct {
	auto bool
}

func (s stubConfig) Get(context.Context) (sysconfig.Config, error) {
	return sysconfig.Config{FXAutoRefresh: s.auto}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFXRefreshHonorsAutoRefreshSetting(t *testing.T) {
	refresher := &stubRefresher{}
	job := NewFXRefreshJob(refresher, stubConfig{auto: false}, discardLogger())

	task, err := NewFXRefreshTask(false)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Zero(t, refresher.calls)
}

func TestFXRefreshForcedIgnoresSetting(t *testing.T) {
	refresher := &stubRefresher{}
	job := NewFXRefreshJob(refresher, stubConfig{auto: false}, discardLogger())

	task, err := NewFXRefreshTask(true)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, refresher.calls)
}

func TestFXRefreshPropagatesProviderError(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("providers down")}
	job := NewFXRefreshJob(refresher, stubConfig{auto: true}, discardLogger())

	task, err := NewFXRefreshTask(false)
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestFXRefreshSkipsRetryOnBadPayload(t *testing.T) {
	job := NewFXRefreshJob(&stubRefresher{}, stubConfig{auto: true}, discardLogger())
	err := job.Handle(context.Background(), asynq.NewTask(TaskFXRefresh, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type stubBackfiller struct {
	from, to time.Time
	calls    int
}

func (s *stubBackfiller) Backfill(_ context.Context, from, to time.Time) (int, error) {
	s.calls++
	s.from, s.to = from, to
	return 2, nil
}

func TestProfitsBackfillDefaultsWindow(t *testing.T) {
	backfiller := &stubBackfiller{}
	job := NewProfitsBackfillJob(backfiller, discardLogger())

	task, err := NewProfitsBackfillTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, backfiller.calls)
	require.Equal(t, 48*time.Hour, backfiller.to.Sub(backfiller.from))
}

func TestProfitsBackfillCustomWindow(t *testing.T) {
	backfiller := &stubBackfiller{}
	job := NewProfitsBackfillJob(backfiller, discardLogger())

	task, err := NewProfitsBackfillTask(7)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 7*24*time.Hour, backfiller.to.Sub(backfiller.from))
}
