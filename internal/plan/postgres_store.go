package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// PostgresStore persists plans in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed plan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, pl *Plan) error {
	limitsJSON, err := json.Marshal(pl.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO plans (id, name, monthly_price, limits, features, recommended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pl.ID, pl.Name, pl.MonthlyPrice, limitsJSON, pq.Array(pl.Features),
		pl.Recommended, pl.CreatedAt, pl.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlanExists
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Plan, error) {
	return p.scanPlan(p.db.QueryRowContext(ctx, `
		SELECT id, name, monthly_price, limits, features, recommended, created_at, updated_at
		FROM plans WHERE id = $1`, id))
}

func (p *PostgresStore) List(ctx context.Context) ([]*Plan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, monthly_price, limits, features, recommended, created_at, updated_at
		FROM plans ORDER BY monthly_price::NUMERIC ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []*Plan
	for rows.Next() {
		pl, err := scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, pl)
	}
	return plans, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, pl *Plan) error {
	limitsJSON, err := json.Marshal(pl.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE plans SET name = $1, monthly_price = $2, limits = $3, features = $4,
			recommended = $5, updated_at = $6
		WHERE id = $7`,
		pl.Name, pl.MonthlyPrice, limitsJSON, pq.Array(pl.Features),
		pl.Recommended, pl.UpdatedAt, pl.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlanNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (p *PostgresStore) scanPlan(row *sql.Row) (*Plan, error) {
	pl, err := scanPlanRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	return pl, err
}

func scanPlanRow(row rowScanner) (*Plan, error) {
	pl := &Plan{}
	var limitsJSON []byte
	err := row.Scan(&pl.ID, &pl.Name, &pl.MonthlyPrice, &limitsJSON,
		pq.Array(&pl.Features), &pl.Recommended, &pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(limitsJSON) > 0 {
		if err := json.Unmarshal(limitsJSON, &pl.Limits); err != nil {
			return nil, fmt.Errorf("%w: %v", limits.ErrInvalidLimit, err)
		}
	}
	return pl, nil
}

// Migrate creates the plans table (used in dev/test; prod uses migration files).
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS plans (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			monthly_price TEXT NOT NULL DEFAULT '0',
			limits        JSONB NOT NULL DEFAULT '{}',
			features      TEXT[] NOT NULL DEFAULT '{}',
			recommended   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
