package sales

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// documentHeader is what it takes to insert an invoice or delivery note row.
type documentHeader struct {
	Number     int64
	ClientID   int64
	EmployeeID int64
	Method     string
	Totals     Totals
}

// TxRepository exposes the mutations that must share one transaction.
type TxRepository interface {
	NextInvoiceNumber(ctx context.Context) (int64, error)
	NextNoteNumber(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, h documentHeader) (int64, error)
	CreateDeliveryNote(ctx context.Context, h documentHeader) (int64, error)
	InsertInvoiceLine(ctx context.Context, invoiceID int64, line LineItem) error
	InsertNoteLine(ctx context.Context, noteID int64, line LineItem) error
	CreateSale(ctx context.Context, sale Sale) (int64, error)
	DecrementStock(ctx context.Context, productID int64, qty float64) error
	RestoreStock(ctx context.Context, productID int64, qty float64) error
	GetProductForSale(ctx context.Context, productID int64) (saleProduct, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	SaleLines(ctx context.Context, sale Sale) ([]LineItem, error)
	InsertPayment(ctx context.Context, p Payment) error
	SetPaidStatus(ctx context.Context, id int64, amountPaid float64, status string) error
	LinkConvertedNote(ctx context.Context, noteID, invoiceID, saleID int64) error
}

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps fn in a repeatable-read transaction. Sale creation, payment
// registration and cancellation all commit entirely or not at all.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepo struct {
	tx pgx.Tx
}

// NextInvoiceNumber claims the next sequential invoice number. The row
// update serializes concurrent claimants.
func (t *txRepo) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		UPDATE system_config
		SET next_invoice_number = next_invoice_number + 1, updated_at = now()
		WHERE id = 1
		RETURNING next_invoice_number - 1`).Scan(&next)
	return next, err
}

func (t *txRepo) NextNoteNumber(ctx context.Context) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		UPDATE system_config
		SET next_note_number = next_note_number + 1, updated_at = now()
		WHERE id = 1
		RETURNING next_note_number - 1`).Scan(&next)
	return next, err
}

func (t *txRepo) CreateInvoice(ctx context.Context, h documentHeader) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (number, client_id, employee_id, payment_method, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		h.Number, h.ClientID, h.EmployeeID, h.Method, h.Totals.Subtotal, h.Totals.Tax, h.Totals.Total).Scan(&id)
	return id, err
}

func (t *txRepo) CreateDeliveryNote(ctx context.Context, h documentHeader) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO delivery_notes (number, client_id, employee_id, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		h.Number, h.ClientID, h.EmployeeID, h.Totals.Subtotal, h.Totals.Tax, h.Totals.Total).Scan(&id)
	return id, err
}

func (t *txRepo) InsertInvoiceLine(ctx context.Context, invoiceID int64, line LineItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO line_items (invoice_id, product_id, quantity, unit_price, line_subtotal)
		VALUES ($1, $2, $3, $4, $5)`,
		invoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.LineTotal)
	return err
}

func (t *txRepo) InsertNoteLine(ctx context.Context, noteID int64, line LineItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO line_items (delivery_note_id, product_id, quantity, unit_price, line_subtotal)
		VALUES ($1, $2, $3, $4, $5)`,
		noteID, line.ProductID, line.Quantity, line.UnitPrice, line.LineTotal)
	return err
}

func (t *txRepo) CreateSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales (employee_id, invoice_id, delivery_note_id, is_credit, amount_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		sale.EmployeeID, sale.InvoiceID, sale.DeliveryNoteID, sale.IsCredit, sale.AmountPaid, sale.Status).Scan(&id)
	return id, err
}

// DecrementStock takes qty out of stock. The guard in the WHERE clause makes
// oversell impossible: zero rows touched means not enough stock, and the
// caller rolls the whole sale back.
func (t *txRepo) DecrementStock(ctx context.Context, productID int64, qty float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE id = $2 AND stock >= $1`,
		qty, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInsufficientStock
	}
	return nil
}

func (t *txRepo) RestoreStock(ctx context.Context, productID int64, qty float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock = LEAST(stock + $1, 100000), updated_at = now()
		WHERE id = $2`,
		qty, productID)
	return err
}

func (t *txRepo) GetProductForSale(ctx context.Context, productID int64) (saleProduct, error) {
	var p saleProduct
	err := t.tx.QueryRow(ctx, `
		SELECT p.id, p.name, p.sale_price, COALESCE(u.fractional, FALSE), p.is_active
		FROM products p
		LEFT JOIN units u ON u.id = p.unit_id
		WHERE p.id = $1`, productID).
		Scan(&p.ID, &p.Name, &p.SalePrice, &p.Fractional, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return saleProduct{}, shared.ErrNotFound
		}
		return saleProduct{}, err
	}
	return p, nil
}

func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := t.tx.QueryRow(ctx, saleSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id)
	return scanSale(row)
}

func (t *txRepo) SaleLines(ctx context.Context, sale Sale) ([]LineItem, error) {
	return queryLines(ctx, t.tx, sale)
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments (sale_id, amount, method, reference)
		VALUES ($1, $2, $3, NULLIF($4, ''))`,
		p.SaleID, p.Amount, p.Method, p.Reference)
	return err
}

func (t *txRepo) SetPaidStatus(ctx context.Context, id int64, amountPaid float64, status string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE sales SET amount_paid = $1, status = $2 WHERE id = $3`,
		amountPaid, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LinkConvertedNote stamps the note as converted and attaches the new
// invoice to both the note and the sale.
func (t *txRepo) LinkConvertedNote(ctx context.Context, noteID, invoiceID, saleID int64) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE delivery_notes SET converted = TRUE, invoice_id = $1 WHERE id = $2`,
		invoiceID, noteID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE sales SET invoice_id = $1 WHERE id = $2`,
		invoiceID, saleID)
	return err
}

const saleSelect = `
	SELECT s.id, s.employee_id, s.invoice_id, s.delivery_note_id, s.is_credit,
	       s.amount_paid, s.status, s.sold_at,
	       COALESCE(i.number, n.number, 0),
	       COALESCE(i.client_id, n.client_id),
	       c.full_name,
	       e.first_name || ' ' || e.last_name,
	       COALESCE(i.subtotal, n.subtotal, 0),
	       COALESCE(i.tax, n.tax, 0),
	       COALESCE(i.total, n.total, 0)
	FROM sales s
	LEFT JOIN invoices i ON i.id = s.invoice_id
	LEFT JOIN delivery_notes n ON n.id = s.delivery_note_id
	JOIN clients c ON c.id = COALESCE(i.client_id, n.client_id)
	JOIN employees e ON e.id = s.employee_id`

// GetSale loads one sale with its document, client and seller joined in.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, saleSelect+` WHERE s.id = $1`, id)
	return scanSale(row)
}

// ListSales returns sales matching the filters, newest first.
func (r *Repository) ListSales(ctx context.Context, filters ListFilters) ([]Sale, error) {
	query := saleSelect + ` WHERE 1=1`
	args := []any{}
	n := 0
	if !filters.From.IsZero() {
		n++
		query += ` AND s.sold_at >= $` + itoa(n)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		n++
		query += ` AND s.sold_at < $` + itoa(n)
		args = append(args, filters.To)
	}
	if filters.Status != "" {
		n++
		query += ` AND s.status = $` + itoa(n)
		args = append(args, filters.Status)
	}
	query += ` ORDER BY s.sold_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// ListPending returns credit sales with an open balance, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, saleSelect+`
		WHERE s.status = 'pending'
		ORDER BY s.sold_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// ListByClient returns a client's sales, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID int64) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, saleSelect+`
		WHERE COALESCE(i.client_id, n.client_id) = $1
		ORDER BY s.sold_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// Lines returns the document's line items.
func (r *Repository) Lines(ctx context.Context, sale Sale) ([]LineItem, error) {
	return queryLines(ctx, r.pool, sale)
}

// Payments returns the sale's payments, oldest first.
func (r *Repository) Payments(ctx context.Context, saleID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, amount, method, COALESCE(reference, ''), paid_at
		FROM payments
		WHERE sale_id = $1
		ORDER BY paid_at`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Dashboard aggregates the home page figures.
func (r *Repository) Dashboard(ctx context.Context) (DashboardSummary, error) {
	var s DashboardSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(COALESCE(i.total, n.total, 0)), 0)
		FROM sales sa
		LEFT JOIN invoices i ON i.id = sa.invoice_id
		LEFT JOIN delivery_notes n ON n.id = sa.delivery_note_id
		WHERE sa.status <> 'cancelled' AND sa.sold_at >= date_trunc('day', now())`).
		Scan(&s.TodayCount, &s.TodayTotal)
	if err != nil {
		return DashboardSummary{}, err
	}
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(COALESCE(i.total, n.total, 0) - sa.amount_paid), 0)
		FROM sales sa
		LEFT JOIN invoices i ON i.id = sa.invoice_id
		LEFT JOIN delivery_notes n ON n.id = sa.delivery_note_id
		WHERE sa.status = 'pending'`).
		Scan(&s.PendingBalance)
	if err != nil {
		return DashboardSummary{}, err
	}
	return s, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, sale Sale) ([]LineItem, error) {
	var (
		parent string
		id     int64
	)
	switch {
	case sale.DeliveryNoteID != nil:
		parent, id = "delivery_note_id", *sale.DeliveryNoteID
	case sale.InvoiceID != nil:
		parent, id = "invoice_id", *sale.InvoiceID
	default:
		return nil, errors.New("sale has no document")
	}
	rows, err := q.Query(ctx, `
		SELECT li.id, li.product_id, p.name, li.quantity, li.unit_price, li.line_subtotal
		FROM line_items li
		JOIN products p ON p.id = li.product_id
		WHERE li.`+parent+` = $1
		ORDER BY li.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func collectSales(rows pgx.Rows) ([]Sale, error) {
	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.EmployeeID, &s.InvoiceID, &s.DeliveryNoteID, &s.IsCredit,
		&s.AmountPaid, &s.Status, &s.SoldAt,
		&s.DocumentNumber, &s.ClientID, &s.ClientName, &s.EmployeeName,
		&s.Subtotal, &s.Tax, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	return s, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
