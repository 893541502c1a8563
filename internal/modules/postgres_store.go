package modules

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore is a PostgreSQL-backed module store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL module store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the school_modules table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS school_modules (
			school_id TEXT NOT NULL,
			module_id TEXT NOT NULL,
			name      TEXT NOT NULL,
			active    BOOLEAN NOT NULL DEFAULT TRUE,
			price     TEXT NOT NULL DEFAULT '0',
			PRIMARY KEY (school_id, module_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate school_modules: %w", err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, schoolID string) ([]ModuleSubscription, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT module_id, name, active, price
		FROM school_modules WHERE school_id = $1
		ORDER BY module_id
	`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ModuleSubscription
	for rows.Next() {
		var m ModuleSubscription
		if err := rows.Scan(&m.ModuleID, &m.Name, &m.Active, &m.Price); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Replace runs delete-then-insert in one transaction so concurrent readers
// see either the old set or the new set, never a mix.
func (p *PostgresStore) Replace(ctx context.Context, schoolID string, mods []ModuleSubscription) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace modules: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM school_modules WHERE school_id = $1`, schoolID); err != nil {
		return fmt.Errorf("clear modules: %w", err)
	}
	for _, m := range mods {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO school_modules (school_id, module_id, name, active, price)
			VALUES ($1, $2, $3, $4, $5)
		`, schoolID, m.ModuleID, m.Name, m.Active, m.Price); err != nil {
			return fmt.Errorf("insert module %s: %w", m.ModuleID, err)
		}
	}
	return tx.Commit()
}

var _ Store = (*PostgresStore)(nil)
