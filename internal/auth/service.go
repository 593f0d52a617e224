package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/employees"
	"github.com/facturo/facturo/internal/shared"
)

// EmployeeResolver finds the staff profile behind a login user.
type EmployeeResolver interface {
	GetByUserID(ctx context.Context, userID int64) (employees.Employee, error)
}

// Service authenticates operators.
type Service struct {
	repo     Repository
	resolver EmployeeResolver
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, resolver EmployeeResolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Login verifies the credentials and resolves the employee profile. Every
// failure path returns ErrInvalidCredentials so the form never reveals which
// part was wrong.
func (s *Service) Login(ctx context.Context, username, password string) (shared.EmployeeClaims, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.EmployeeClaims{}, shared.ErrInvalidCredentials
		}
		return shared.EmployeeClaims{}, err
	}
	if !user.Active {
		return shared.EmployeeClaims{}, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return shared.EmployeeClaims{}, shared.ErrInvalidCredentials
	}

	employee, err := s.resolver.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.EmployeeClaims{}, shared.ErrNoEmployeeProfile
		}
		return shared.EmployeeClaims{}, err
	}
	if !employee.Active {
		return shared.EmployeeClaims{}, shared.ErrNoEmployeeProfile
	}

	return shared.EmployeeClaims{
		EmployeeID: employee.ID,
		UserID:     user.ID,
		Name:       employee.FullName(),
		Role:       employee.Role,
	}, nil
}

// Claims rebuilds the context claims for a session's user id.
func (s *Service) Claims(ctx context.Context, userID int64) (shared.EmployeeClaims, error) {
	employee, err := s.resolver.GetByUserID(ctx, userID)
	if err != nil {
		return shared.EmployeeClaims{}, err
	}
	if !employee.Active {
		return shared.EmployeeClaims{}, shared.ErrNoEmployeeProfile
	}
	return shared.EmployeeClaims{
		EmployeeID: employee.ID,
		UserID:     userID,
		Name:       employee.FullName(),
		Role:       employee.Role,
	}, nil
}

// ChangePassword rotates the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < 8 {
		return shared.NewBusinessError("La nueva contraseña debe tener al menos 8 caracteres.", nil)
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return shared.NewBusinessError("La contraseña actual no es correcta.", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}
