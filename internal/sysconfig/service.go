package sysconfig

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/shared"
)

// Service exposes the business configuration singleton.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
	audit    *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		logger:   logger,
		validate: validator.New(),
		audit:    audit,
	}
}

// Get returns the current configuration. A fresh database gets the
// singleton row seeded with defaults on first access.
func (s *Service) Get(ctx context.Context) (Config, error) {
	cfg, err := s.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Config{}, err
	}
	if err := s.repo.InsertDefaults(ctx); err != nil {
		return Config{}, err
	}
	return s.repo.Get(ctx)
}

// Update applies the settings form. Document counters may only move forward
// so already issued numbers are never reused.
func (s *Service) Update(ctx context.Context, input UpdateConfigInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.NewBusinessError("Datos de configuración inválidos.", err)
	}
	current, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	if input.NextInvoiceNumber < current.NextInvoiceNumber {
		return shared.NewBusinessError("El próximo número de factura no puede retroceder.", nil)
	}
	if input.NextNoteNumber < current.NextNoteNumber {
		return shared.NewBusinessError("El próximo número de nota no puede retroceder.", nil)
	}

	cfg := Config{
		CompanyName:       input.CompanyName,
		CompanyRIF:        input.CompanyRIF,
		CompanyAddress:    input.CompanyAddress,
		CompanyPhone:      input.CompanyPhone,
		TaxPercent:        input.TaxPercent,
		TaxEnabled:        input.TaxEnabled,
		NextInvoiceNumber: input.NextInvoiceNumber,
		NextNoteNumber:    input.NextNoteNumber,
		FXAutoRefresh:     input.FXAutoRefresh,
	}
	if err := s.repo.Update(ctx, cfg); err != nil {
		return err
	}
	if claims := shared.EmployeeFromContext(ctx); claims != nil && s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  claims.UserID,
			Action:   "sysconfig.update",
			Entity:   "system_config",
			EntityID: "1",
		}); err != nil {
			s.logger.Warn("audit record failed", "error", err)
		}
	}
	return nil
}
