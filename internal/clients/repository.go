package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// ErrDuplicateDocument reports an already registered document id.
var ErrDuplicateDocument = errors.New("document already registered")

// ErrClientInUse reports a client that still has sales on record.
var ErrClientInUse = errors.New("client has sales on record")

// Repository provides PostgreSQL backed persistence for clients.
type Repository interface {
	List(ctx context.Context, search string) ([]Client, error)
	Get(ctx context.Context, id int64) (Client, error)
	GetByDocument(ctx context.Context, docType, number string) (Client, error)
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, id int64, client Client) error
	Delete(ctx context.Context, id int64) error
	Lookup(ctx context.Context, query string, limit int) ([]LookupItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const clientColumns = `id, document_type, document_number, full_name, email, phone, address, created_at, updated_at`

func (r *repository) List(ctx context.Context, search string) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []any{}
	if search != "" {
		query += ` WHERE full_name ILIKE $1 OR document_number LIKE $2`
		args = append(args, "%"+search+"%", search+"%")
	}
	query += ` ORDER BY full_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, client)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClientRow(row)
}

func (r *repository) GetByDocument(ctx context.Context, docType, number string) (Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE document_type = $1 AND document_number = $2`,
		docType, number)
	return scanClientRow(row)
}

func (r *repository) Create(ctx context.Context, client Client) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (document_type, document_number, full_name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+clientColumns,
		client.DocumentType, client.DocumentNumber, client.FullName, client.Email, client.Phone, client.Address)
	created, err := scanClientRow(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Client{}, ErrDuplicateDocument
		}
		return Client{}, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, client Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET document_type = $1, document_number = $2, full_name = $3, email = $4,
		    phone = $5, address = $6, updated_at = now()
		WHERE id = $7`,
		client.DocumentType, client.DocumentNumber, client.FullName, client.Email,
		client.Phone, client.Address, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDocument
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrClientInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Lookup(ctx context.Context, query string, limit int) ([]LookupItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_type || '-' || document_number || ' ' || full_name
		FROM clients
		WHERE full_name ILIKE $1 OR document_number LIKE $2
		ORDER BY full_name
		LIMIT $3`,
		"%"+query+"%", query+"%", limit)
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

func scanClient(rows pgx.Rows) (Client, error) {
	var c Client
	err := rows.Scan(&c.ID, &c.DocumentType, &c.DocumentNumber, &c.FullName, &c.Email,
		&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanClientRow(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.DocumentType, &c.DocumentNumber, &c.FullName, &c.Email,
		&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, shared.ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
