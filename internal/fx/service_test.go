package fx

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Upsert(ctx context.Context, rate Rate) (Rate, error) {
	args := m.Called(ctx, rate)
	return args.Get(0).(Rate), args.Error(1)
}

func (m *mockRepo) SetCurrent(ctx context.Context, rateID int64) error {
	args := m.Called(ctx, rateID)
	return args.Error(0)
}

func (m *mockRepo) Current(ctx context.Context) (Rate, error) {
	args := m.Called(ctx)
	return args.Get(0).(Rate), args.Error(1)
}

func (m *mockRepo) Latest(ctx context.Context) (Rate, error) {
	args := m.Called(ctx)
	return args.Get(0).(Rate), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, limit int) ([]Rate, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]Rate), args.Error(1)
}

type stubProvider struct {
	name  string
	value float64
	err   error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Fetch(ctx context.Context) (float64, error) {
	return p.value, p.err
}

func newTestService(repo Repository, providers ...Provider) *Service {
	return NewService(repo, providers, slog.Default(), observability.NewMetrics())
}

func TestRefreshUsesFirstWorkingProvider(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r Rate) bool {
		return r.Rate == 42.5 && r.Source == "secondary"
	})).Return(Rate{ID: 7, Rate: 42.5, Source: "secondary"}, nil)
	repo.On("SetCurrent", mock.Anything, int64(7)).Return(nil)

	svc := newTestService(repo,
		stubProvider{name: "primary", err: errors.New("timeout")},
		stubProvider{name: "secondary", value: 42.5},
	)

	rate, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42.5, rate.Rate)
	repo.AssertExpectations(t)
}

func TestRefreshFallsBackToLastKnownRate(t *testing.T) {
	repo := new(mockRepo)
	last := Rate{ID: 3, Rate: 40.1, Source: "manual", RateDate: time.Now().AddDate(0, 0, -2)}
	repo.On("Latest", mock.Anything).Return(last, nil)
	repo.On("SetCurrent", mock.Anything, int64(3)).Return(nil)

	svc := newTestService(repo, stubProvider{name: "primary", err: errors.New("down")})

	rate, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 40.1, rate.Rate)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRefreshRegistersDefaultWhenNoHistory(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Latest", mock.Anything).Return(Rate{}, shared.ErrNotFound)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r Rate) bool {
		return r.Rate == DefaultRate && r.Source == "default"
	})).Return(Rate{ID: 1, Rate: DefaultRate, Source: "default"}, nil)
	repo.On("SetCurrent", mock.Anything, int64(1)).Return(nil)

	svc := newTestService(repo, stubProvider{name: "primary", err: errors.New("down")})

	rate, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultRate, rate.Rate)
	repo.AssertExpectations(t)
}

func TestSetManualRejectsNonPositiveRate(t *testing.T) {
	svc := newTestService(new(mockRepo))
	_, err := svc.SetManual(context.Background(), 0, time.Now())
	require.Error(t, err)
}
