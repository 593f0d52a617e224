package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/facturo/facturo/internal/shared"
)

// maxSnapshotBytes caps uploaded backups at 50 MB.
const maxSnapshotBytes = 50 << 20

// Store is the persistence surface the service works against.
type Store interface {
	Export(ctx context.Context) (Snapshot, error)
	Import(ctx context.Context, snap Snapshot) error
}

// Service produces and restores JSON backups.
type Service struct {
	store  Store
	logger *slog.Logger
	audit  *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(store Store, logger *slog.Logger, audit *shared.AuditLogger) *Service {
	return &Service{store: store, logger: logger, audit: audit}
}

// Export serializes the whole database to indented JSON.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.store.Export(ctx)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "backup.export")
	return json.MarshalIndent(snap, "", "  ")
}

// Restore parses and validates a snapshot, then replaces the database with
// it. A malformed or incompatible file leaves the data untouched.
func (s *Service) Restore(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return shared.NewBusinessError("El archivo de respaldo está vacío.", nil)
	}
	if len(raw) > maxSnapshotBytes {
		return shared.NewBusinessError("El archivo de respaldo es demasiado grande.", nil)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return shared.NewBusinessError("El archivo no es un respaldo válido.", err)
	}
	if snap.Version != FormatVersion {
		return shared.NewBusinessError(
			fmt.Sprintf("Versión de respaldo no soportada (%d).", snap.Version), nil)
	}
	if err := validate(snap); err != nil {
		return err
	}
	clean, dropped := cleanse(snap)
	if dropped > 0 {
		s.logger.Warn("backup rows with dangling references skipped", "dropped", dropped)
	}
	if err := s.store.Import(ctx, clean); err != nil {
		return err
	}
	s.logger.Info("backup restored",
		"clients", len(clean.Clients), "products", len(clean.Products), "sales", len(clean.Sales))
	s.recordAudit(ctx, "backup.restore")
	return nil
}

// validate rejects snapshots that would leave the system unusable. Row-level
// inconsistencies are handled by cleanse instead.
func validate(snap Snapshot) error {
	if len(snap.Users) == 0 || len(snap.Employees) == 0 {
		return shared.NewBusinessError("El respaldo no contiene usuarios; restaurarlo bloquearía el acceso.", nil)
	}
	users := map[int64]bool{}
	for _, u := range snap.Users {
		users[u.ID] = true
	}
	for _, e := range snap.Employees {
		if !users[e.UserID] {
			return shared.NewBusinessError(
				fmt.Sprintf("El empleado %d referencia un usuario inexistente.", e.ID), nil)
		}
	}
	return nil
}

// cleanse drops rows whose foreign keys no longer resolve, so a partially
// corrupted file restores what it can instead of failing mid-import. It
// returns the pruned snapshot and how many rows were discarded.
func cleanse(snap Snapshot) (Snapshot, int) {
	dropped := 0

	clients := map[int64]bool{}
	for _, c := range snap.Clients {
		clients[c.ID] = true
	}
	employees := map[int64]bool{}
	for _, e := range snap.Employees {
		employees[e.ID] = true
	}
	units := map[int64]bool{}
	for _, u := range snap.Units {
		units[u.ID] = true
	}
	products := map[int64]bool{}
	for i, p := range snap.Products {
		if p.UnitID != nil && !units[*p.UnitID] {
			snap.Products[i].UnitID = nil
		}
		products[p.ID] = true
	}
	if snap.CurrentRateID != nil {
		found := false
		for _, r := range snap.FXRates {
			if r.ID == *snap.CurrentRateID {
				found = true
				break
			}
		}
		if !found {
			snap.CurrentRateID = nil
		}
	}

	invoices := map[int64]bool{}
	keptInvoices := snap.Invoices[:0:0]
	for _, inv := range snap.Invoices {
		if !clients[inv.ClientID] || !employees[inv.EmployeeID] {
			dropped++
			continue
		}
		invoices[inv.ID] = true
		keptInvoices = append(keptInvoices, inv)
	}

	notes := map[int64]bool{}
	keptNotes := snap.DeliveryNotes[:0:0]
	for _, n := range snap.DeliveryNotes {
		if !clients[n.ClientID] || !employees[n.EmployeeID] {
			dropped++
			continue
		}
		if n.InvoiceID != nil && !invoices[*n.InvoiceID] {
			n.InvoiceID = nil
		}
		notes[n.ID] = true
		keptNotes = append(keptNotes, n)
	}

	keptLines := snap.LineItems[:0:0]
	for _, li := range snap.LineItems {
		okInvoice := li.InvoiceID != nil && invoices[*li.InvoiceID]
		okNote := li.DeliveryNoteID != nil && notes[*li.DeliveryNoteID]
		if (!okInvoice && !okNote) || !products[li.ProductID] {
			dropped++
			continue
		}
		keptLines = append(keptLines, li)
	}

	sales := map[int64]bool{}
	keptSales := snap.Sales[:0:0]
	for _, sa := range snap.Sales {
		okInvoice := sa.InvoiceID != nil && invoices[*sa.InvoiceID]
		okNote := sa.DeliveryNoteID != nil && notes[*sa.DeliveryNoteID]
		if (!okInvoice && !okNote) || !employees[sa.EmployeeID] {
			dropped++
			continue
		}
		sales[sa.ID] = true
		keptSales = append(keptSales, sa)
	}

	keptPayments := snap.Payments[:0:0]
	for _, p := range snap.Payments {
		if !sales[p.SaleID] {
			dropped++
			continue
		}
		keptPayments = append(keptPayments, p)
	}

	snap.Invoices = keptInvoices
	snap.DeliveryNotes = keptNotes
	snap.LineItems = keptLines
	snap.Sales = keptSales
	snap.Payments = keptPayments
	return snap, dropped
}

func (s *Service) recordAudit(ctx context.Context, action string) {
	claims := shared.EmployeeFromContext(ctx)
	if claims == nil || s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  claims.UserID,
		Action:   action,
		Entity:   "backup",
		EntityID: "1",
	}); err != nil {
		s.logger.Warn("audit record failed", "error", err)
	}
}
