package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/employees"
	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) GetByUserID(ctx context.Context, userID int64) (employees.Employee, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(employees.Employee), args.Error(1)
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginSuccess(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetByUsername", mock.Anything, "ana").
		Return(User{ID: 3, Username: "ana", PasswordHash: hash(t, "secreta123"), Active: true}, nil)

	resolver := new(mockResolver)
	resolver.On("GetByUserID", mock.Anything, int64(3)).
		Return(employees.Employee{ID: 8, UserID: 3, FirstName: "Ana", LastName: "Rojas", Role: "seller", Active: true}, nil)

	svc := NewService(repo, resolver, slog.Default())
	claims, err := svc.Login(context.Background(), " Ana ", "secreta123")
	require.NoError(t, err)
	require.Equal(t, int64(8), claims.EmployeeID)
	require.Equal(t, "Ana Rojas", claims.Name)
	require.Equal(t, "seller", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetByUsername", mock.Anything, "ana").
		Return(User{ID: 3, PasswordHash: hash(t, "secreta123"), Active: true}, nil)

	svc := NewService(repo, new(mockResolver), slog.Default())
	_, err := svc.Login(context.Background(), "ana", "otra")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetByUsername", mock.Anything, "nadie").Return(User{}, shared.ErrNotFound)

	svc := NewService(repo, new(mockResolver), slog.Default())
	_, err := svc.Login(context.Background(), "nadie", "loquesea")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveEmployee(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetByUsername", mock.Anything, "ana").
		Return(User{ID: 3, PasswordHash: hash(t, "secreta123"), Active: true}, nil)

	resolver := new(mockResolver)
	resolver.On("GetByUserID", mock.Anything, int64(3)).
		Return(employees.Employee{ID: 8, Active: false}, nil)

	svc := NewService(repo, resolver, slog.Default())
	_, err := svc.Login(context.Background(), "ana", "secreta123")
	require.ErrorIs(t, err, shared.ErrNoEmployeeProfile)
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetByID", mock.Anything, int64(3)).
		Return(User{ID: 3, PasswordHash: hash(t, "secreta123")}, nil)

	svc := NewService(repo, new(mockResolver), slog.Default())
	err := svc.ChangePassword(context.Background(), 3, "equivocada", "nuevaclave9")
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}
