package sysconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the configuration singleton.
type Repository interface {
	Get(ctx context.Context) (Config, error)
	InsertDefaults(ctx context.Context) error
	Update(ctx context.Context, cfg Config) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context) (Config, error) {
	var cfg Config
	err := r.pool.QueryRow(ctx, `
		SELECT company_name, company_rif, company_address, company_phone,
		       tax_percent, tax_enabled, next_invoice_number, next_note_number,
		       fx_auto_refresh, updated_at
		FROM system_config WHERE id = 1`).Scan(
		&cfg.CompanyName, &cfg.CompanyRIF, &cfg.CompanyAddress, &cfg.CompanyPhone,
		&cfg.TaxPercent, &cfg.TaxEnabled, &cfg.NextInvoiceNumber, &cfg.NextNoteNumber,
		&cfg.FXAutoRefresh, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, shared.ErrNotFound
		}
		return Config{}, err
	}
	return cfg, nil
}

// InsertDefaults seeds the singleton row on a fresh database. The schema
// defaults fill in tax percent, counters and toggles.
func (r *repository) InsertDefaults(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO system_config (id, company_name, company_rif)
		VALUES (1, 'Mi Empresa', 'J-00000000-0')
		ON CONFLICT (id) DO NOTHING`)
	return err
}

func (r *repository) Update(ctx context.Context, cfg Config) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE system_config
		SET company_name = $1, company_rif = $2, company_address = $3, company_phone = $4,
		    tax_percent = $5, tax_enabled = $6, next_invoice_number = $7, next_note_number = $8,
		    fx_auto_refresh = $9, updated_at = now()
		WHERE id = 1`,
		cfg.CompanyName, cfg.CompanyRIF, cfg.CompanyAddress, cfg.CompanyPhone,
		cfg.TaxPercent, cfg.TaxEnabled, cfg.NextInvoiceNumber, cfg.NextNoteNumber,
		cfg.FXAutoRefresh)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
