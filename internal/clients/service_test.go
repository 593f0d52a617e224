package clients

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) List(ctx context.Context, search string) ([]Client, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]Client), args.Error(1)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Client, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Client), args.Error(1)
}

func (m *mockRepo) GetByDocument(ctx context.Context, docType, number string) (Client, error) {
	args := m.Called(ctx, docType, number)
	return args.Get(0).(Client), args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, client Client) (Client, error) {
	args := m.Called(ctx, client)
	return args.Get(0).(Client), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id int64, client Client) error {
	args := m.Called(ctx, id, client)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) Lookup(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]LookupItem), args.Error(1)
}

func validClientInput() ClientInput {
	return ClientInput{
		DocumentType:   "v",
		DocumentNumber: "12.345.678",
		FullName:       "María Pérez",
		Phone:          "0414-1234567",
		Address:        "Av. Bolívar, Valencia",
	}
}

func TestCreateNormalizesDocument(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c Client) bool {
		return c.DocumentType == "V" && c.DocumentNumber == "12345678" && c.Email == nil
	})).Return(Client{ID: 1}, nil)

	svc := NewService(repo, slog.Default())
	_, err := svc.Create(context.Background(), validClientInput())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateRejectsBadDocument(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default())

	input := validClientInput()
	input.DocumentNumber = "123"

	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
}

func TestCreateMapsDuplicateDocument(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(Client{}, ErrDuplicateDocument)

	svc := NewService(repo, slog.Default())
	_, err := svc.Create(context.Background(), validClientInput())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Ya existe un cliente")
}

func TestDeleteMapsClientInUse(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Delete", mock.Anything, int64(5)).Return(ErrClientInUse)

	svc := NewService(repo, slog.Default())
	err := svc.Delete(context.Background(), 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ventas registradas")
}

func TestLookupSkipsShortQueries(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, slog.Default())

	items, err := svc.Lookup(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Nil(t, items)
	repo.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}
