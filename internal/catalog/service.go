package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/shared"
)

// Service exposes catalog operations.
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

// ListProducts returns products, optionally filtered by name or SKU.
func (s *Service) ListProducts(ctx context.Context, search string) ([]Product, error) {
	return s.repo.ListProducts(ctx, strings.TrimSpace(search))
}

// GetProduct returns one product with its unit joined in.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct registers a product. The initial stock must respect the
// unit's fractional rule.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	product, err := s.fromInput(ctx, input)
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if errors.Is(err, ErrDuplicateProduct) {
			return Product{}, shared.NewBusinessError("Ya existe un producto con ese SKU o nombre.", err)
		}
		return Product{}, err
	}
	return created, nil
}

// UpdateProduct rewrites a product's data. Stock is not touched here; it
// only moves through sales and explicit adjustments.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) error {
	product, err := s.fromInput(ctx, input)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, id, product); err != nil {
		if errors.Is(err, ErrDuplicateProduct) {
			return shared.NewBusinessError("Ya existe un producto con ese SKU o nombre.", err)
		}
		return err
	}
	return nil
}

// AdjustStock applies a manual stock movement and records who did it and why.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta float64, reason string) (float64, error) {
	if delta == 0 {
		return 0, shared.NewBusinessError("La cantidad del ajuste no puede ser cero.", nil)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, shared.NewBusinessError("Indique el motivo del ajuste.", nil)
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := checkQuantityPrecision(delta, product.Fractional); err != nil {
		return 0, err
	}

	newStock, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			return 0, shared.NewBusinessError("El ajuste dejaría el stock fuera de rango.", err)
		}
		return 0, err
	}

	if claims := shared.EmployeeFromContext(ctx); claims != nil && s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  claims.UserID,
			Action:   "catalog.stock_adjust",
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"delta": delta, "reason": reason, "stock": newStock},
		}); err != nil {
			s.logger.Warn("audit record failed", "error", err)
		}
	}
	return newStock, nil
}

// Lookup returns autocomplete suggestions for the sale form.
func (s *Service) Lookup(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, nil
	}
	return s.repo.LookupProducts(ctx, query, limit)
}

// TopSellers ranks products by quantity sold in [from, to].
func (s *Service) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]TopSeller, error) {
	// to is inclusive as a calendar date
	return s.repo.TopSellers(ctx, from, to.AddDate(0, 0, 1), limit)
}

// LowStockProducts returns active products at or under their threshold.
func (s *Service) LowStockProducts(ctx context.Context, limit int) ([]Product, error) {
	return s.repo.LowStockProducts(ctx, limit)
}

// ListUnits returns the active units of measure.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

// CreateUnit registers a unit of measure.
func (s *Service) CreateUnit(ctx context.Context, input UnitInput) (Unit, error) {
	if err := s.validate.Struct(input); err != nil {
		return Unit{}, shared.NewBusinessError("Datos de la unidad inválidos.", err)
	}
	unit := Unit{
		Name:         strings.TrimSpace(input.Name),
		Abbreviation: strings.TrimSpace(input.Abbreviation),
		Description:  strings.TrimSpace(input.Description),
		Fractional:   input.Fractional,
	}
	created, err := s.repo.CreateUnit(ctx, unit)
	if err != nil {
		if errors.Is(err, ErrDuplicateUnit) {
			return Unit{}, shared.NewBusinessError("Ya existe una unidad con ese nombre o abreviatura.", err)
		}
		return Unit{}, err
	}
	return created, nil
}

// UpdateUnit rewrites a unit of measure.
func (s *Service) UpdateUnit(ctx context.Context, id int64, input UnitInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.NewBusinessError("Datos de la unidad inválidos.", err)
	}
	unit := Unit{
		Name:         strings.TrimSpace(input.Name),
		Abbreviation: strings.TrimSpace(input.Abbreviation),
		Description:  strings.TrimSpace(input.Description),
		Fractional:   input.Fractional,
	}
	if err := s.repo.UpdateUnit(ctx, id, unit); err != nil {
		if errors.Is(err, ErrDuplicateUnit) {
			return shared.NewBusinessError("Ya existe una unidad con ese nombre o abreviatura.", err)
		}
		return err
	}
	return nil
}

func (s *Service) fromInput(ctx context.Context, input ProductInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, shared.NewBusinessError("Datos del producto inválidos.", err)
	}
	unit, err := s.repo.GetUnit(ctx, input.UnitID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Product{}, shared.NewBusinessError("La unidad seleccionada no existe.", err)
		}
		return Product{}, err
	}
	if input.Stock > 0 {
		if err := checkQuantityPrecision(input.Stock, unit.Fractional); err != nil {
			return Product{}, err
		}
	}
	unitID := unit.ID
	return Product{
		SKU:               strings.ToUpper(strings.TrimSpace(input.SKU)),
		Name:              strings.TrimSpace(input.Name),
		Description:       strings.TrimSpace(input.Description),
		SalePrice:         input.SalePrice,
		PurchasePrice:     input.PurchasePrice,
		Stock:             input.Stock,
		LowStockThreshold: input.LowStockThreshold,
		UnitID:            &unitID,
		Active:            input.Active,
	}, nil
}

// checkQuantityPrecision rejects fractional quantities for whole-only units
// and more than three decimals everywhere.
func checkQuantityPrecision(q float64, fractional bool) error {
	abs := math.Abs(q)
	if !fractional && abs != math.Trunc(abs) {
		return shared.NewBusinessError("La unidad de este producto no admite cantidades fraccionarias.", nil)
	}
	scaled := abs * 1000
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return shared.NewBusinessError("Las cantidades admiten máximo tres decimales.", nil)
	}
	return nil
}
