package school

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore is a PostgreSQL-backed school store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL school store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schools and branches tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schools (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			slug               TEXT NOT NULL UNIQUE,
			status             TEXT NOT NULL DEFAULT 'active',
			stripe_customer_id TEXT NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS branches (
			id         TEXT PRIMARY KEY,
			school_id  TEXT NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			address    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_branches_school ON branches(school_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate schools: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, s *School) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO schools (id, name, slug, status, stripe_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.Name, s.Slug, s.Status, s.StripeCustomerID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert school: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*School, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, status, stripe_customer_id, created_at, updated_at
		FROM schools WHERE id = $1
	`, id))
}

func (p *PostgresStore) GetBySlug(ctx context.Context, slug string) (*School, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, status, stripe_customer_id, created_at, updated_at
		FROM schools WHERE slug = $1
	`, slug))
}

func (p *PostgresStore) List(ctx context.Context) ([]*School, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, slug, status, stripe_customer_id, created_at, updated_at
		FROM schools ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*School
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Status, &s.StripeCustomerID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, s *School) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE schools SET name = $2, slug = $3, status = $4, stripe_customer_id = $5, updated_at = $6
		WHERE id = $1
	`, s.ID, s.Name, s.Slug, s.Status, s.StripeCustomerID, s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSlugTaken
		}
		return fmt.Errorf("update school: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) CreateBranch(ctx context.Context, b *Branch) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO branches (id, school_id, name, address, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.SchoolID, b.Name, b.Address, b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListBranches(ctx context.Context, schoolID string) ([]*Branch, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, school_id, name, address, created_at
		FROM branches WHERE school_id = $1 ORDER BY created_at
	`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.SchoolID, &b.Name, &b.Address, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteBranch(ctx context.Context, schoolID, branchID string) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM branches WHERE id = $1 AND school_id = $2
	`, branchID, schoolID)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBranchNotFound
	}
	return nil
}

func (p *PostgresStore) CountBranches(ctx context.Context, schoolID string) (uint64, error) {
	var n uint64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches WHERE school_id = $1`, schoolID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count branches: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) scanOne(row *sql.Row) (*School, error) {
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Status, &s.StripeCustomerID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan school: %w", err)
	}
	return &s, nil
}

var _ Store = (*PostgresStore)(nil)
