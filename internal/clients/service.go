package clients

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/shared"
)

// Service exposes client management operations.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, validate: validator.New()}
}

// List returns clients, optionally filtered by name or document number.
func (s *Service) List(ctx context.Context, search string) ([]Client, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a client after validating and normalizing its document.
func (s *Service) Create(ctx context.Context, input ClientInput) (Client, error) {
	client, err := s.fromInput(input)
	if err != nil {
		return Client{}, err
	}
	created, err := s.repo.Create(ctx, client)
	if err != nil {
		if errors.Is(err, ErrDuplicateDocument) {
			return Client{}, shared.NewBusinessError("Ya existe un cliente con ese documento.", err)
		}
		return Client{}, err
	}
	return created, nil
}

// Update rewrites a client's data.
func (s *Service) Update(ctx context.Context, id int64, input ClientInput) error {
	client, err := s.fromInput(input)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, client); err != nil {
		if errors.Is(err, ErrDuplicateDocument) {
			return shared.NewBusinessError("Ya existe un cliente con ese documento.", err)
		}
		return err
	}
	return nil
}

// Delete removes a client without sales history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrClientInUse) {
			return shared.NewBusinessError("El cliente tiene ventas registradas y no puede eliminarse.", err)
		}
		return err
	}
	return nil
}

// Lookup returns autocomplete suggestions for the sale form.
func (s *Service) Lookup(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, nil
	}
	return s.repo.Lookup(ctx, query, limit)
}

func (s *Service) fromInput(input ClientInput) (Client, error) {
	docType, number := NormalizeDocument(input.DocumentType, input.DocumentNumber)
	if err := ValidateDocument(docType, number); err != nil {
		return Client{}, err
	}
	if err := s.validate.Struct(input); err != nil {
		return Client{}, shared.NewBusinessError("Datos del cliente inválidos.", err)
	}
	client := Client{
		DocumentType:   docType,
		DocumentNumber: number,
		FullName:       strings.TrimSpace(input.FullName),
		Phone:          strings.TrimSpace(input.Phone),
		Address:        strings.TrimSpace(input.Address),
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		client.Email = &email
	}
	return client, nil
}
