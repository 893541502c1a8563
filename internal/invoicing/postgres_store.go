package invoicing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/pagination"
)

// PostgresStore is a PostgreSQL-backed invoice store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL invoice store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the invoices table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS invoices (
			id         TEXT PRIMARY KEY,
			school_id  TEXT NOT NULL,
			student_id TEXT NOT NULL DEFAULT '',
			number     TEXT NOT NULL,
			items      JSONB NOT NULL DEFAULT '[]',
			total      TEXT NOT NULL,
			status     TEXT NOT NULL,
			issued_at  TIMESTAMPTZ NOT NULL,
			paid_at    TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_invoices_school ON invoices(school_id, created_at, id);
	`)
	if err != nil {
		return fmt.Errorf("migrate invoices: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, inv *Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO invoices (id, school_id, student_id, number, items, total, status, issued_at, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, inv.ID, inv.SchoolID, inv.StudentID, inv.Number, items, inv.Total, inv.Status, inv.IssuedAt, inv.PaidAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, schoolID, id string) (*Invoice, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, school_id, student_id, number, items, total, status, issued_at, paid_at, created_at
		FROM invoices WHERE school_id = $1 AND id = $2
	`, schoolID, id)

	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	return inv, err
}

func (p *PostgresStore) ListAfter(ctx context.Context, schoolID string, after *pagination.Cursor, limit int) ([]*Invoice, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if after == nil {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, school_id, student_id, number, items, total, status, issued_at, paid_at, created_at
			FROM invoices WHERE school_id = $1
			ORDER BY created_at, id LIMIT $2
		`, schoolID, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, school_id, student_id, number, items, total, status, issued_at, paid_at, created_at
			FROM invoices WHERE school_id = $1 AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id LIMIT $4
		`, schoolID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, inv *Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE invoices SET student_id = $3, number = $4, items = $5, total = $6, status = $7, issued_at = $8, paid_at = $9
		WHERE school_id = $1 AND id = $2
	`, inv.SchoolID, inv.ID, inv.StudentID, inv.Number, items, inv.Total, inv.Status, inv.IssuedAt, inv.PaidAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (p *PostgresStore) CountInvoices(ctx context.Context, schoolID string) (uint64, error) {
	var n uint64
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invoices WHERE school_id = $1 AND status != 'void'
	`, schoolID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) RevenueCents(ctx context.Context, schoolID string) (int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT total FROM invoices WHERE school_id = $1 AND status = 'paid'
	`, schoolID)
	if err != nil {
		return 0, fmt.Errorf("revenue query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cents int64
	for rows.Next() {
		var total string
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
		c, err := limits.PriceCents(total)
		if err != nil {
			return 0, err
		}
		cents += c
	}
	return cents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var items []byte
	err := row.Scan(&inv.ID, &inv.SchoolID, &inv.StudentID, &inv.Number, &items, &inv.Total, &inv.Status, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &inv, nil
}

var _ Store = (*PostgresStore)(nil)
