package catalog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListProducts(ctx context.Context, search string) ([]Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]Product), args.Error(1)
}

func (m *mockRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Product), args.Error(1)
}

func (m *mockRepo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(Product), args.Error(1)
}

func (m *mockRepo) UpdateProduct(ctx context.Context, id int64, p Product) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *mockRepo) AdjustStock(ctx context.Context, id int64, delta float64) (float64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockRepo) LookupProducts(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]LookupItem), args.Error(1)
}

func (m *mockRepo) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]TopSeller, error) {
	args := m.Called(ctx, from, to, limit)
	return args.Get(0).([]TopSeller), args.Error(1)
}

func (m *mockRepo) LowStockProducts(ctx context.Context, limit int) ([]Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]Product), args.Error(1)
}

func (m *mockRepo) ListUnits(ctx context.Context) ([]Unit, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Unit), args.Error(1)
}

func (m *mockRepo) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(Unit), args.Error(1)
}

func (m *mockRepo) UpdateUnit(ctx context.Context, id int64, u Unit) error {
	args := m.Called(ctx, id, u)
	return args.Error(0)
}

func (m *mockRepo) GetUnit(ctx context.Context, id int64) (Unit, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Unit), args.Error(1)
}

func validProductInput() ProductInput {
	return ProductInput{
		SKU:           "cafe-250",
		Name:          "Café molido 250g",
		SalePrice:     4.50,
		PurchasePrice: 3.10,
		Stock:         20,
		UnitID:        1,
		Active:        true,
	}
}

func TestCreateProductUppercasesSKU(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetUnit", mock.Anything, int64(1)).Return(Unit{ID: 1, Name: "Unidad", Fractional: false}, nil)
	repo.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p Product) bool {
		return p.SKU == "CAFE-250" && p.SalePrice == 4.50
	})).Return(Product{ID: 9}, nil)

	svc := NewService(repo, slog.Default(), nil)
	_, err := svc.CreateProduct(context.Background(), validProductInput())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateProductRejectsPriceOutOfBounds(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default(), nil)

	input := validProductInput()
	input.SalePrice = 5000.01

	_, err := svc.CreateProduct(context.Background(), input)
	require.Error(t, err)
}

func TestCreateProductRejectsFractionalStockOnWholeUnit(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetUnit", mock.Anything, int64(1)).Return(Unit{ID: 1, Fractional: false}, nil)

	svc := NewService(repo, slog.Default(), nil)

	input := validProductInput()
	input.Stock = 2.5

	_, err := svc.CreateProduct(context.Background(), input)
	require.Error(t, err)
	repo.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestAdjustStockRequiresReason(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default(), nil)
	_, err := svc.AdjustStock(context.Background(), 1, 5, "  ")
	require.Error(t, err)
}

func TestAdjustStockMapsInsufficientStock(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, int64(1)).Return(Product{ID: 1, Fractional: true}, nil)
	repo.On("AdjustStock", mock.Anything, int64(1), -10.0).Return(0.0, shared.ErrInsufficientStock)

	svc := NewService(repo, slog.Default(), nil)
	_, err := svc.AdjustStock(context.Background(), 1, -10, "merma")
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestCheckQuantityPrecision(t *testing.T) {
	require.NoError(t, checkQuantityPrecision(2, false))
	require.NoError(t, checkQuantityPrecision(0.125, true))
	require.Error(t, checkQuantityPrecision(2.5, false))
	require.Error(t, checkQuantityPrecision(0.0001, true))
}
