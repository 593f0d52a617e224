package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/shared"
)

// Service exposes employee management operations.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
	audit    *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, logger: logger, validate: validator.New(), audit: audit}
}

// List returns all employees.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// Get returns one employee.
func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	return s.repo.Get(ctx, id)
}

// GetByUserID resolves the employee profile for a logged-in user.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (Employee, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Create registers an employee and its login user.
func (s *Service) Create(ctx context.Context, input CreateEmployeeInput) (Employee, error) {
	if err := s.validate.Struct(input); err != nil {
		return Employee{}, shared.NewBusinessError("Datos del empleado inválidos.", err)
	}
	if !ValidRole(input.Role) {
		return Employee{}, shared.NewBusinessError("Rol inválido.", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Employee{}, err
	}
	employee := Employee{
		Username:  strings.ToLower(strings.TrimSpace(input.Username)),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Role:      input.Role,
		Active:    input.Active,
	}
	created, err := s.repo.Create(ctx, employee, string(hash))
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return Employee{}, shared.NewBusinessError("Ese nombre de usuario ya está en uso.", err)
		}
		return Employee{}, err
	}
	s.recordAudit(ctx, "employees.create", created.ID)
	return created, nil
}

// Update rewrites an employee's profile. An admin demoting or deactivating
// their own account is rejected to avoid locking everyone out.
func (s *Service) Update(ctx context.Context, id int64, input UpdateEmployeeInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.NewBusinessError("Datos del empleado inválidos.", err)
	}
	if !ValidRole(input.Role) {
		return shared.NewBusinessError("Rol inválido.", nil)
	}
	if claims := shared.EmployeeFromContext(ctx); claims != nil && claims.EmployeeID == id {
		if input.Role != RoleAdmin || !input.Active {
			return shared.NewBusinessError("No puede degradar ni desactivar su propia cuenta.", nil)
		}
	}

	var hash string
	if input.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		hash = string(h)
	}
	employee := Employee{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Role:      input.Role,
		Active:    input.Active,
	}
	if err := s.repo.Update(ctx, id, employee, hash); err != nil {
		return err
	}
	s.recordAudit(ctx, "employees.update", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, employeeID int64) {
	claims := shared.EmployeeFromContext(ctx)
	if claims == nil || s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  claims.UserID,
		Action:   action,
		Entity:   "employee",
		EntityID: fmt.Sprintf("%d", employeeID),
	}); err != nil {
		s.logger.Warn("audit record failed", "error", err)
	}
}
