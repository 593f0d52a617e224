package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// ErrDuplicateProduct reports a SKU or name collision.
var ErrDuplicateProduct = errors.New("product already exists")

// ErrDuplicateUnit reports a unit name or abbreviation collision.
var ErrDuplicateUnit = errors.New("unit already exists")

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository interface {
	ListProducts(ctx context.Context, search string) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) error
	AdjustStock(ctx context.Context, id int64, delta float64) (float64, error)
	LookupProducts(ctx context.Context, query string, limit int) ([]LookupItem, error)
	TopSellers(ctx context.Context, from, to time.Time, limit int) ([]TopSeller, error)
	LowStockProducts(ctx context.Context, limit int) ([]Product, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	CreateUnit(ctx context.Context, u Unit) (Unit, error)
	UpdateUnit(ctx context.Context, id int64, u Unit) error
	GetUnit(ctx context.Context, id int64) (Unit, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productSelect = `
	SELECT p.id, p.sku, p.name, p.description, p.sale_price, p.purchase_price,
	       p.stock, p.low_stock_threshold, p.unit_id,
	       COALESCE(u.name, ''), COALESCE(u.fractional, FALSE),
	       p.is_active, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN units u ON u.id = p.unit_id`

func (r *repository) ListProducts(ctx context.Context, search string) ([]Product, error) {
	query := productSelect
	args := []any{}
	if search != "" {
		query += ` WHERE p.name ILIKE $1 OR p.sku ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, sale_price, purchase_price,
		                      stock, low_stock_threshold, unit_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.SKU, p.Name, p.Description, p.SalePrice, p.PurchasePrice,
		p.Stock, p.LowStockThreshold, p.UnitID, p.Active).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateProduct
		}
		return Product{}, err
	}
	return r.GetProduct(ctx, id)
}

func (r *repository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET sku = $1, name = $2, description = $3, sale_price = $4, purchase_price = $5,
		    low_stock_threshold = $6, unit_id = $7, is_active = $8, updated_at = now()
		WHERE id = $9`,
		p.SKU, p.Name, p.Description, p.SalePrice, p.PurchasePrice,
		p.LowStockThreshold, p.UnitID, p.Active, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AdjustStock applies a delta with the bounds enforced in the WHERE clause,
// so a concurrent sale can never drive stock negative.
func (r *repository) AdjustStock(ctx context.Context, id int64, delta float64) (float64, error) {
	var newStock float64
	err := r.pool.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2 AND stock + $1 >= 0 AND stock + $1 <= $3
		RETURNING stock`,
		delta, id, MaxStock).Scan(&newStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetProduct(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, shared.ErrInsufficientStock
		}
		return 0, err
	}
	return newStock, nil
}

func (r *repository) LookupProducts(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, sku || ' ' || name
		FROM products
		WHERE is_active AND (name ILIKE $1 OR sku ILIKE $1)
		ORDER BY name
		LIMIT $2`,
		"%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LookupItem
	for rows.Next() {
		var item LookupItem
		if err := rows.Scan(&item.ID, &item.Label); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// TopSellers ranks products by quantity sold over non-cancelled sales.
func (r *repository) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]TopSeller, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, SUM(li.quantity), SUM(li.line_subtotal)
		FROM line_items li
		JOIN products p ON p.id = li.product_id
		JOIN sales s
		  ON (s.delivery_note_id IS NOT NULL AND li.delivery_note_id = s.delivery_note_id)
		  OR (s.delivery_note_id IS NULL AND li.invoice_id = s.invoice_id)
		WHERE s.status <> 'cancelled' AND s.sold_at >= $1 AND s.sold_at < $2
		GROUP BY p.id, p.name
		ORDER BY SUM(li.quantity) DESC
		LIMIT $3`,
		from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopSeller
	for rows.Next() {
		var t TopSeller
		if err := rows.Scan(&t.ProductID, &t.Name, &t.Quantity, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) LowStockProducts(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, productSelect+`
		WHERE p.is_active AND p.stock <= p.low_stock_threshold
		ORDER BY p.stock
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *repository) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, abbreviation, description, fractional, is_active, created_at
		FROM units
		WHERE is_active
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.Fractional, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *repository) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO units (name, abbreviation, description, fractional)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, abbreviation, description, fractional, is_active, created_at`,
		u.Name, u.Abbreviation, u.Description, u.Fractional)
	var out Unit
	if err := row.Scan(&out.ID, &out.Name, &out.Abbreviation, &out.Description, &out.Fractional, &out.Active, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Unit{}, ErrDuplicateUnit
		}
		return Unit{}, err
	}
	return out, nil
}

func (r *repository) UpdateUnit(ctx context.Context, id int64, u Unit) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE units
		SET name = $1, abbreviation = $2, description = $3, fractional = $4
		WHERE id = $5`,
		u.Name, u.Abbreviation, u.Description, u.Fractional, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUnit
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetUnit(ctx context.Context, id int64) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, abbreviation, description, fractional, is_active, created_at
		FROM units WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.Fractional, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, shared.ErrNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.SalePrice, &p.PurchasePrice,
		&p.Stock, &p.LowStockThreshold, &p.UnitID, &p.UnitName, &p.Fractional,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
