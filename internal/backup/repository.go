package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and writes whole-database snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Export reads every table into a snapshot. Reads run in one repeatable-read
// transaction so the snapshot is internally consistent.
func (r *Repository) Export(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Version: FormatVersion, ExportedAt: time.Now()}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	if snap.Users, err = readRows(ctx, tx,
		`SELECT id, username, email, password_hash, is_active, created_at FROM users ORDER BY id`,
		func(row pgx.Rows) (User, error) {
			var u User
			err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
			return u, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Employees, err = readRows(ctx, tx,
		`SELECT id, user_id, first_name, last_name, role, phone, hired_at, is_active FROM employees ORDER BY id`,
		func(row pgx.Rows) (Employee, error) {
			var e Employee
			err := row.Scan(&e.ID, &e.UserID, &e.FirstName, &e.LastName, &e.Role, &e.Phone, &e.HiredAt, &e.Active)
			return e, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Clients, err = readRows(ctx, tx,
		`SELECT id, document_type, document_number, full_name, email, phone, address, created_at FROM clients ORDER BY id`,
		func(row pgx.Rows) (Client, error) {
			var c Client
			err := row.Scan(&c.ID, &c.DocumentType, &c.DocumentNumber, &c.FullName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
			return c, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Units, err = readRows(ctx, tx,
		`SELECT id, name, abbreviation, description, fractional, is_active FROM units ORDER BY id`,
		func(row pgx.Rows) (Unit, error) {
			var u Unit
			err := row.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.Fractional, &u.Active)
			return u, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Products, err = readRows(ctx, tx,
		`SELECT id, sku, name, description, sale_price, purchase_price, stock, low_stock_threshold, unit_id, is_active, created_at FROM products ORDER BY id`,
		func(row pgx.Rows) (Product, error) {
			var p Product
			err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.SalePrice, &p.PurchasePrice,
				&p.Stock, &p.LowStockThreshold, &p.UnitID, &p.Active, &p.CreatedAt)
			return p, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.FXRates, err = readRows(ctx, tx,
		`SELECT id, rate_date, usd_ves, source FROM fx_rates ORDER BY id`,
		func(row pgx.Rows) (FXRate, error) {
			var f FXRate
			err := row.Scan(&f.ID, &f.RateDate, &f.USDVES, &f.Source)
			return f, err
		}); err != nil {
		return Snapshot{}, err
	}
	if err := tx.QueryRow(ctx, `SELECT rate_id FROM fx_current_rate WHERE id = 1`).Scan(&snap.CurrentRateID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, err
	}
	var cfg Config
	err = tx.QueryRow(ctx, `
		SELECT company_name, company_rif, company_address, company_phone,
		       tax_percent, tax_enabled, next_invoice_number, next_note_number, fx_auto_refresh
		FROM system_config WHERE id = 1`).
		Scan(&cfg.CompanyName, &cfg.CompanyRIF, &cfg.CompanyAddress, &cfg.CompanyPhone,
			&cfg.TaxPercent, &cfg.TaxEnabled, &cfg.NextInvoiceNumber, &cfg.NextNoteNumber, &cfg.FXAutoRefresh)
	if err == nil {
		snap.Config = &cfg
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, err
	}
	if snap.Invoices, err = readRows(ctx, tx,
		`SELECT id, number, client_id, employee_id, payment_method, subtotal, tax, total, issued_at FROM invoices ORDER BY id`,
		func(row pgx.Rows) (Invoice, error) {
			var i Invoice
			err := row.Scan(&i.ID, &i.Number, &i.ClientID, &i.EmployeeID, &i.PaymentMethod,
				&i.Subtotal, &i.Tax, &i.Total, &i.IssuedAt)
			return i, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.DeliveryNotes, err = readRows(ctx, tx,
		`SELECT id, number, client_id, employee_id, subtotal, tax, total, notes, converted, invoice_id, issued_at FROM delivery_notes ORDER BY id`,
		func(row pgx.Rows) (DeliveryNote, error) {
			var n DeliveryNote
			err := row.Scan(&n.ID, &n.Number, &n.ClientID, &n.EmployeeID, &n.Subtotal, &n.Tax,
				&n.Total, &n.Notes, &n.Converted, &n.InvoiceID, &n.IssuedAt)
			return n, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.LineItems, err = readRows(ctx, tx,
		`SELECT id, invoice_id, delivery_note_id, product_id, quantity, unit_price, line_subtotal FROM line_items ORDER BY id`,
		func(row pgx.Rows) (LineItem, error) {
			var l LineItem
			err := row.Scan(&l.ID, &l.InvoiceID, &l.DeliveryNoteID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.LineSubtotal)
			return l, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Sales, err = readRows(ctx, tx,
		`SELECT id, employee_id, invoice_id, delivery_note_id, is_credit, amount_paid, status, sold_at FROM sales ORDER BY id`,
		func(row pgx.Rows) (Sale, error) {
			var s Sale
			err := row.Scan(&s.ID, &s.EmployeeID, &s.InvoiceID, &s.DeliveryNoteID, &s.IsCredit, &s.AmountPaid, &s.Status, &s.SoldAt)
			return s, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.Payments, err = readRows(ctx, tx,
		`SELECT id, sale_id, amount, method, reference, paid_at FROM payments ORDER BY id`,
		func(row pgx.Rows) (Payment, error) {
			var p Payment
			err := row.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt)
			return p, err
		}); err != nil {
		return Snapshot{}, err
	}
	if snap.ProfitRecords, err = readRows(ctx, tx,
		`SELECT id, record_date, revenue, cost, profit FROM profit_records ORDER BY id`,
		func(row pgx.Rows) (ProfitRecord, error) {
			var p ProfitRecord
			err := row.Scan(&p.ID, &p.RecordDate, &p.Revenue, &p.Cost, &p.Profit)
			return p, err
		}); err != nil {
		return Snapshot{}, err
	}

	return snap, tx.Commit(ctx)
}

// Import replaces the operational tables with the snapshot's contents in one
// transaction. Row ids are preserved and the sequences are bumped past them.
func (r *Repository) Import(ctx context.Context, snap Snapshot) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		TRUNCATE payments, sales, line_items, delivery_notes, invoices,
		         profit_records, fx_current_rate, fx_rates, products, units,
		         clients, employees, users
		RESTART IDENTITY CASCADE`); err != nil {
		return err
	}

	for _, u := range snap.Users {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Active, u.CreatedAt); err != nil {
			return fmt.Errorf("restore users: %w", err)
		}
	}
	for _, e := range snap.Employees {
		if _, err := tx.Exec(ctx, `
			INSERT INTO employees (id, user_id, first_name, last_name, role, phone, hired_at, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.UserID, e.FirstName, e.LastName, e.Role, e.Phone, e.HiredAt, e.Active); err != nil {
			return fmt.Errorf("restore employees: %w", err)
		}
	}
	for _, c := range snap.Clients {
		if _, err := tx.Exec(ctx, `
			INSERT INTO clients (id, document_type, document_number, full_name, email, phone, address, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.DocumentType, c.DocumentNumber, c.FullName, c.Email, c.Phone, c.Address, c.CreatedAt); err != nil {
			return fmt.Errorf("restore clients: %w", err)
		}
	}
	for _, u := range snap.Units {
		if _, err := tx.Exec(ctx, `
			INSERT INTO units (id, name, abbreviation, description, fractional, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Name, u.Abbreviation, u.Description, u.Fractional, u.Active); err != nil {
			return fmt.Errorf("restore units: %w", err)
		}
	}
	for _, p := range snap.Products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (id, sku, name, description, sale_price, purchase_price, stock, low_stock_threshold, unit_id, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, p.SKU, p.Name, p.Description, p.SalePrice, p.PurchasePrice,
			p.Stock, p.LowStockThreshold, p.UnitID, p.Active, p.CreatedAt); err != nil {
			return fmt.Errorf("restore products: %w", err)
		}
	}
	for _, f := range snap.FXRates {
		if _, err := tx.Exec(ctx, `
			INSERT INTO fx_rates (id, rate_date, usd_ves, source)
			VALUES ($1, $2, $3, $4)`,
			f.ID, f.RateDate, f.USDVES, f.Source); err != nil {
			return fmt.Errorf("restore fx_rates: %w", err)
		}
	}
	if snap.CurrentRateID != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO fx_current_rate (id, rate_id) VALUES (1, $1)`,
			*snap.CurrentRateID); err != nil {
			return fmt.Errorf("restore fx_current_rate: %w", err)
		}
	}
	if snap.Config != nil {
		cfg := snap.Config
		if _, err := tx.Exec(ctx, `
			INSERT INTO system_config (id, company_name, company_rif, company_address, company_phone,
			                           tax_percent, tax_enabled, next_invoice_number, next_note_number, fx_auto_refresh)
			VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE
			SET company_name = EXCLUDED.company_name,
			    company_rif = EXCLUDED.company_rif,
			    company_address = EXCLUDED.company_address,
			    company_phone = EXCLUDED.company_phone,
			    tax_percent = EXCLUDED.tax_percent,
			    tax_enabled = EXCLUDED.tax_enabled,
			    next_invoice_number = EXCLUDED.next_invoice_number,
			    next_note_number = EXCLUDED.next_note_number,
			    fx_auto_refresh = EXCLUDED.fx_auto_refresh,
			    updated_at = now()`,
			cfg.CompanyName, cfg.CompanyRIF, cfg.CompanyAddress, cfg.CompanyPhone,
			cfg.TaxPercent, cfg.TaxEnabled, cfg.NextInvoiceNumber, cfg.NextNoteNumber, cfg.FXAutoRefresh); err != nil {
			return fmt.Errorf("restore system_config: %w", err)
		}
	}
	for _, i := range snap.Invoices {
		if _, err := tx.Exec(ctx, `
			INSERT INTO invoices (id, number, client_id, employee_id, payment_method, subtotal, tax, total, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			i.ID, i.Number, i.ClientID, i.EmployeeID, i.PaymentMethod, i.Subtotal, i.Tax, i.Total, i.IssuedAt); err != nil {
			return fmt.Errorf("restore invoices: %w", err)
		}
	}
	for _, n := range snap.DeliveryNotes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO delivery_notes (id, number, client_id, employee_id, subtotal, tax, total, notes, converted, invoice_id, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			n.ID, n.Number, n.ClientID, n.EmployeeID, n.Subtotal, n.Tax, n.Total,
			n.Notes, n.Converted, n.InvoiceID, n.IssuedAt); err != nil {
			return fmt.Errorf("restore delivery_notes: %w", err)
		}
	}
	for _, l := range snap.LineItems {
		if _, err := tx.Exec(ctx, `
			INSERT INTO line_items (id, invoice_id, delivery_note_id, product_id, quantity, unit_price, line_subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, l.InvoiceID, l.DeliveryNoteID, l.ProductID, l.Quantity, l.UnitPrice, l.LineSubtotal); err != nil {
			return fmt.Errorf("restore line_items: %w", err)
		}
	}
	for _, s := range snap.Sales {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sales (id, employee_id, invoice_id, delivery_note_id, is_credit, amount_paid, status, sold_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.ID, s.EmployeeID, s.InvoiceID, s.DeliveryNoteID, s.IsCredit, s.AmountPaid, s.Status, s.SoldAt); err != nil {
			return fmt.Errorf("restore sales: %w", err)
		}
	}
	for _, p := range snap.Payments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payments (id, sale_id, amount, method, reference, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.SaleID, p.Amount, p.Method, p.Reference, p.PaidAt); err != nil {
			return fmt.Errorf("restore payments: %w", err)
		}
	}
	for _, p := range snap.ProfitRecords {
		if _, err := tx.Exec(ctx, `
			INSERT INTO profit_records (id, record_date, revenue, cost, profit)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.RecordDate, p.Revenue, p.Cost, p.Profit); err != nil {
			return fmt.Errorf("restore profit_records: %w", err)
		}
	}

	// Explicit ids bypass the sequences, so move them past the restored rows.
	for _, table := range []string{
		"users", "employees", "clients", "units", "products", "fx_rates",
		"invoices", "delivery_notes", "line_items", "sales", "payments", "profit_records",
	} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			table, table)); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func readRows[T any](ctx context.Context, tx pgx.Tx, query string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
