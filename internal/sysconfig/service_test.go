package sysconfig

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Get(ctx context.Context) (Config, error) {
	args := m.Called(ctx)
	return args.Get(0).(Config), args.Error(1)
}

func (m *mockRepo) InsertDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockRepo) Update(ctx context.Context, cfg Config) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func validInput() UpdateConfigInput {
	return UpdateConfigInput{
		CompanyName:       "Inversiones Demo C.A.",
		CompanyRIF:        "J-12345678-9",
		TaxPercent:        16,
		TaxEnabled:        true,
		NextInvoiceNumber: 10,
		NextNoteNumber:    5,
	}
}

func TestGetSeedsDefaultsOnFirstAccess(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Get", mock.Anything).Return(Config{}, shared.ErrNotFound).Once()
	repo.On("InsertDefaults", mock.Anything).Return(nil).Once()
	repo.On("Get", mock.Anything).Return(Config{
		CompanyName:       "Mi Empresa",
		CompanyRIF:        "J-00000000-0",
		TaxPercent:        16,
		TaxEnabled:        true,
		NextInvoiceNumber: 1,
		NextNoteNumber:    1,
		FXAutoRefresh:     true,
	}, nil).Once()

	svc := NewService(repo, slog.Default(), nil)
	cfg, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 16.0, cfg.TaxPercent)
	require.True(t, cfg.TaxEnabled)
	require.Equal(t, int64(1), cfg.NextInvoiceNumber)
	repo.AssertExpectations(t)
}

func TestGetSkipsSeedingWhenConfigured(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Get", mock.Anything).Return(Config{CompanyName: "Comercial La Esquina", TaxPercent: 8}, nil).Once()

	svc := NewService(repo, slog.Default(), nil)
	cfg, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Comercial La Esquina", cfg.CompanyName)
	repo.AssertNotCalled(t, "InsertDefaults", mock.Anything)
}

func TestUpdateRejectsCounterRollback(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Get", mock.Anything).Return(Config{NextInvoiceNumber: 20, NextNoteNumber: 5}, nil)

	svc := NewService(repo, slog.Default(), nil)
	err := svc.Update(context.Background(), validInput())

	require.Error(t, err)
	require.Contains(t, err.Error(), "factura")
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateRejectsInvalidTaxPercent(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, slog.Default(), nil)

	input := validInput()
	input.TaxPercent = 120

	err := svc.Update(context.Background(), input)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Get", mock.Anything)
}

func TestUpdatePersistsConfig(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Get", mock.Anything).Return(Config{NextInvoiceNumber: 1, NextNoteNumber: 1}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(cfg Config) bool {
		return cfg.CompanyName == "Inversiones Demo C.A." && cfg.NextInvoiceNumber == 10
	})).Return(nil)

	svc := NewService(repo, slog.Default(), nil)
	require.NoError(t, svc.Update(context.Background(), validInput()))
	repo.AssertExpectations(t)
}
