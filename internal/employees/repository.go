package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/shared"
)

// ErrDuplicateUsername reports an already taken username.
var ErrDuplicateUsername = errors.New("username already taken")

// Repository provides PostgreSQL backed persistence for employees and their
// login users.
type Repository interface {
	List(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, id int64) (Employee, error)
	GetByUserID(ctx context.Context, userID int64) (Employee, error)
	Create(ctx context.Context, e Employee, passwordHash string) (Employee, error)
	Update(ctx context.Context, id int64, e Employee, passwordHash string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const employeeSelect = `
	SELECT e.id, e.user_id, u.username, e.first_name, e.last_name, e.phone,
	       e.role, e.hired_at, e.is_active
	FROM employees e
	JOIN users u ON u.id = e.user_id`

func (r *repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, employeeSelect+` ORDER BY e.first_name, e.last_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.FirstName, &e.LastName,
			&e.Phone, &e.Role, &e.HiredAt, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	return r.scanOne(ctx, employeeSelect+` WHERE e.id = $1`, id)
}

func (r *repository) GetByUserID(ctx context.Context, userID int64) (Employee, error) {
	return r.scanOne(ctx, employeeSelect+` WHERE e.user_id = $1`, userID)
}

// Create inserts the user and its employee profile in one transaction.
func (r *repository) Create(ctx context.Context, e Employee, passwordHash string) (Employee, error) {
	var created Employee
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, password_hash, is_active)
			VALUES ($1, $2, $3)
			RETURNING id`,
			e.Username, passwordHash, e.Active).Scan(&userID)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO employees (user_id, first_name, last_name, phone, role, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, hired_at`,
			userID, e.FirstName, e.LastName, e.Phone, e.Role, e.Active).Scan(&created.ID, &created.HiredAt)
		if err != nil {
			return err
		}
		created.UserID = userID
		created.Username = e.Username
		created.FirstName = e.FirstName
		created.LastName = e.LastName
		created.Phone = e.Phone
		created.Role = e.Role
		created.Active = e.Active
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Employee{}, ErrDuplicateUsername
		}
		return Employee{}, err
	}
	return created, nil
}

// Update rewrites the profile; a non-empty passwordHash also rotates the
// login password. Deactivating the employee deactivates the user too.
func (r *repository) Update(ctx context.Context, id int64, e Employee, passwordHash string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
			UPDATE employees
			SET first_name = $1, last_name = $2, phone = $3, role = $4, is_active = $5
			WHERE id = $6
			RETURNING user_id`,
			e.FirstName, e.LastName, e.Phone, e.Role, e.Active, id).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if passwordHash != "" {
			_, err = tx.Exec(ctx, `
				UPDATE users SET password_hash = $1, is_active = $2, updated_at = now()
				WHERE id = $3`,
				passwordHash, e.Active, userID)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE users SET is_active = $1, updated_at = now()
				WHERE id = $2`,
				e.Active, userID)
		}
		return err
	})
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (Employee, error) {
	var e Employee
	err := r.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.UserID, &e.Username,
		&e.FirstName, &e.LastName, &e.Phone, &e.Role, &e.HiredAt, &e.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
