package employees

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) List(ctx context.Context) ([]Employee, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Employee), args.Error(1)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Employee, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Employee), args.Error(1)
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID int64) (Employee, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Employee), args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, e Employee, passwordHash string) (Employee, error) {
	args := m.Called(ctx, e, passwordHash)
	return args.Get(0).(Employee), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id int64, e Employee, passwordHash string) error {
	args := m.Called(ctx, id, e, passwordHash)
	return args.Error(0)
}

func validCreateInput() CreateEmployeeInput {
	return CreateEmployeeInput{
		FirstName: "Ana",
		LastName:  "Rojas",
		Username:  "arojas",
		Password:  "supersecreta",
		Role:      RoleSeller,
		Active:    true,
	}
}

func TestCreateHashesPassword(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(e Employee) bool {
		return e.Username == "arojas" && e.Role == RoleSeller
	}), mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("supersecreta")) == nil
	})).Return(Employee{ID: 4}, nil)

	svc := NewService(repo, slog.Default(), nil)
	_, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default(), nil)

	input := validCreateInput()
	input.Password = "corta"

	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default(), nil)

	input := validCreateInput()
	input.Role = "gerente"

	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
}

func TestUpdateRejectsSelfDemotion(t *testing.T) {
	svc := NewService(new(mockRepo), slog.Default(), nil)

	ctx := shared.ContextWithEmployee(context.Background(), &shared.EmployeeClaims{
		EmployeeID: 7,
		UserID:     7,
		Role:       RoleAdmin,
	})
	err := svc.Update(ctx, 7, UpdateEmployeeInput{
		FirstName: "Ana",
		LastName:  "Rojas",
		Role:      RoleSeller,
		Active:    true,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "propia cuenta")
}

func TestFullName(t *testing.T) {
	require.Equal(t, "Ana Rojas", Employee{FirstName: "Ana", LastName: "Rojas"}.FullName())
	require.Equal(t, "Ana", Employee{FirstName: "Ana"}.FullName())
}
