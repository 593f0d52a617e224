package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/sysconfig"
)

// Store is the persistence surface the service works against.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filters ListFilters) ([]Sale, error)
	ListPending(ctx context.Context) ([]Sale, error)
	ListByClient(ctx context.Context, clientID int64) ([]Sale, error)
	Lines(ctx context.Context, sale Sale) ([]LineItem, error)
	Payments(ctx context.Context, saleID int64) ([]Payment, error)
	Dashboard(ctx context.Context) (DashboardSummary, error)
}

// ConfigSource supplies the tax settings at sale time.
type ConfigSource interface {
	Get(ctx context.Context) (sysconfig.Config, error)
}

// Service implements the sale lifecycle.
type Service struct {
	store    Store
	config   ConfigSource
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *observability.Metrics
	audit    *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(store Store, config ConfigSource, logger *slog.Logger, metrics *observability.Metrics, audit *shared.AuditLogger) *Service {
	return &Service{
		store:    store,
		config:   config,
		logger:   logger,
		validate: validator.New(),
		metrics:  metrics,
		audit:    audit,
	}
}

// CreateSale records a sale in one transaction: stock leaves, the document
// gets its sequential number, lines and totals are written, and for cash
// sales the full payment is registered on the spot.
func (s *Service) CreateSale(ctx context.Context, employeeID int64, input CreateSaleInput) (int64, error) {
	if err := s.validate.Struct(input); err != nil {
		return 0, shared.NewBusinessError("Datos de la venta inválidos.", err)
	}
	method := "efectivo"
	if input.InitialPayment != nil {
		if !ValidPaymentMethod(input.InitialPayment.Method) {
			return 0, shared.NewBusinessError("Método de pago inválido.", nil)
		}
		method = input.InitialPayment.Method
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return 0, err
	}
	taxPercent := cfg.TaxPercent
	if !cfg.TaxEnabled {
		taxPercent = 0
	}

	var saleID int64
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines := make([]LineItem, 0, len(input.Lines))
		for _, li := range input.Lines {
			product, err := tx.GetProductForSale(ctx, li.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewBusinessError("Uno de los productos no existe.", err)
				}
				return err
			}
			if !product.Active {
				return shared.NewBusinessError(fmt.Sprintf("El producto %s está inactivo.", product.Name), nil)
			}
			if err := checkQuantity(li.Quantity, product.Fractional); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, product.ID, li.Quantity); err != nil {
				if errors.Is(err, shared.ErrInsufficientStock) {
					return shared.NewBusinessError(fmt.Sprintf("Stock insuficiente de %s.", product.Name), err)
				}
				return err
			}
			lines = append(lines, LineItem{
				ProductID: product.ID,
				Quantity:  li.Quantity,
				UnitPrice: product.SalePrice,
				LineTotal: round2(li.Quantity * product.SalePrice),
			})
		}

		totals := ComputeTotals(lines, taxPercent)

		switch input.Kind {
		case KindInvoice:
			number, err := tx.NextInvoiceNumber(ctx)
			if err != nil {
				return err
			}
			invoiceID, err := tx.CreateInvoice(ctx, documentHeader{
				Number:     number,
				ClientID:   input.ClientID,
				EmployeeID: employeeID,
				Method:     method,
				Totals:     totals,
			})
			if err != nil {
				return err
			}
			for _, line := range lines {
				if err := tx.InsertInvoiceLine(ctx, invoiceID, line); err != nil {
					return err
				}
			}
			saleID, err = tx.CreateSale(ctx, Sale{
				EmployeeID: employeeID,
				InvoiceID:  &invoiceID,
				IsCredit:   false,
				AmountPaid: totals.Total,
				Status:     StatusCompleted,
			})
			if err != nil {
				return err
			}
			return tx.InsertPayment(ctx, Payment{
				SaleID: saleID,
				Amount: totals.Total,
				Method: method,
			})

		case KindDeliveryNote:
			var initial float64
			if input.InitialPayment != nil {
				initial = round2(input.InitialPayment.Amount)
				if initial >= totals.Total {
					return shared.NewBusinessError("El abono inicial cubre el total; registre una factura de contado.", nil)
				}
			}
			number, err := tx.NextNoteNumber(ctx)
			if err != nil {
				return err
			}
			noteID, err := tx.CreateDeliveryNote(ctx, documentHeader{
				Number:     number,
				ClientID:   input.ClientID,
				EmployeeID: employeeID,
				Totals:     totals,
			})
			if err != nil {
				return err
			}
			for _, line := range lines {
				if err := tx.InsertNoteLine(ctx, noteID, line); err != nil {
					return err
				}
			}
			saleID, err = tx.CreateSale(ctx, Sale{
				EmployeeID:     employeeID,
				DeliveryNoteID: &noteID,
				IsCredit:       true,
				AmountPaid:     initial,
				Status:         StatusPending,
			})
			if err != nil {
				return err
			}
			if initial > 0 {
				return tx.InsertPayment(ctx, Payment{
					SaleID:    saleID,
					Amount:    initial,
					Method:    method,
					Reference: referenceOf(input.InitialPayment),
				})
			}
			return nil

		default:
			return shared.NewBusinessError("Tipo de documento inválido.", nil)
		}
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordSale(input.Kind)
	s.recordAudit(ctx, "sales.create", saleID, nil)
	return saleID, nil
}

// RegisterPayment collects against a credit sale. When the balance reaches
// zero the delivery note converts into an invoice inside the same
// transaction, so the sale can never end up settled but unconverted.
func (s *Service) RegisterPayment(ctx context.Context, saleID int64, input PaymentInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.NewBusinessError("Datos del pago inválidos.", err)
	}
	if !ValidPaymentMethod(input.Method) {
		return shared.NewBusinessError("Método de pago inválido.", nil)
	}

	var converted bool
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != StatusPending {
			return shared.NewBusinessError("Solo las ventas pendientes admiten pagos.", nil)
		}
		amount := round2(input.Amount)
		balance := sale.Balance()
		if amount > balance+0.009 {
			return shared.NewBusinessError(
				fmt.Sprintf("El pago excede el saldo pendiente (%.2f).", balance), nil)
		}

		if err := tx.InsertPayment(ctx, Payment{
			SaleID:    saleID,
			Amount:    amount,
			Method:    input.Method,
			Reference: input.Reference,
		}); err != nil {
			return err
		}

		newPaid := round2(sale.AmountPaid + amount)
		if newPaid+0.009 < sale.Total {
			return tx.SetPaidStatus(ctx, saleID, newPaid, StatusPending)
		}

		// Settled: convert the note into an invoice with its own number.
		if sale.DeliveryNoteID != nil && sale.InvoiceID == nil {
			number, err := tx.NextInvoiceNumber(ctx)
			if err != nil {
				return err
			}
			invoiceID, err := tx.CreateInvoice(ctx, documentHeader{
				Number:     number,
				ClientID:   sale.ClientID,
				EmployeeID: sale.EmployeeID,
				Method:     input.Method,
				Totals:     Totals{Subtotal: sale.Subtotal, Tax: sale.Tax, Total: sale.Total},
			})
			if err != nil {
				return err
			}
			lines, err := tx.SaleLines(ctx, sale)
			if err != nil {
				return err
			}
			for _, line := range lines {
				line.ID = 0
				if err := tx.InsertInvoiceLine(ctx, invoiceID, line); err != nil {
					return err
				}
			}
			if err := tx.LinkConvertedNote(ctx, *sale.DeliveryNoteID, invoiceID, saleID); err != nil {
				return err
			}
			converted = true
		}
		return tx.SetPaidStatus(ctx, saleID, newPaid, StatusCompleted)
	})
	if err != nil {
		return err
	}

	meta := map[string]any{"amount": input.Amount, "method": input.Method}
	if converted {
		meta["converted"] = true
	}
	s.recordAudit(ctx, "sales.payment", saleID, meta)
	return nil
}

// CancelSale voids a sale and puts the stock back.
func (s *Service) CancelSale(ctx context.Context, saleID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return shared.NewBusinessError("La venta ya está anulada.", nil)
		}
		lines, err := tx.SaleLines(ctx, sale)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.RestoreStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return tx.SetPaidStatus(ctx, saleID, sale.AmountPaid, StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "sales.cancel", saleID, nil)
	return nil
}

// Get loads one sale.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.store.GetSale(ctx, id)
}

// List returns sales matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Sale, error) {
	return s.store.ListSales(ctx, filters)
}

// ListPending returns open credit sales.
func (s *Service) ListPending(ctx context.Context) ([]Sale, error) {
	return s.store.ListPending(ctx)
}

// ListByClient returns a client's sales.
func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]Sale, error) {
	return s.store.ListByClient(ctx, clientID)
}

// Lines returns the document lines of a sale.
func (s *Service) Lines(ctx context.Context, sale Sale) ([]LineItem, error) {
	return s.store.Lines(ctx, sale)
}

// Payments returns a sale's payments.
func (s *Service) Payments(ctx context.Context, saleID int64) ([]Payment, error) {
	return s.store.Payments(ctx, saleID)
}

// Dashboard aggregates the home page figures.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	return s.store.Dashboard(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action string, saleID int64, meta map[string]any) {
	claims := shared.EmployeeFromContext(ctx)
	if claims == nil || s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  claims.UserID,
		Action:   action,
		Entity:   "sale",
		EntityID: fmt.Sprintf("%d", saleID),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", "error", err)
	}
}

func referenceOf(p *PaymentInput) string {
	if p == nil {
		return ""
	}
	return p.Reference
}

// checkQuantity rejects fractional quantities for whole-only units and more
// than three decimals everywhere.
func checkQuantity(q float64, fractional bool) error {
	if q <= 0 {
		return shared.NewBusinessError("Las cantidades deben ser mayores que cero.", nil)
	}
	if !fractional && q != math.Trunc(q) {
		return shared.NewBusinessError("La unidad de este producto no admite cantidades fraccionarias.", nil)
	}
	scaled := q * 1000
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return shared.NewBusinessError("Las cantidades admiten máximo tres decimales.", nil)
	}
	return nil
}
