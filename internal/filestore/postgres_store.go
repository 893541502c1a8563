package filestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is a PostgreSQL-backed file metadata store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL file store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the files table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS files (
			id           TEXT PRIMARY KEY,
			school_id    TEXT NOT NULL,
			name         TEXT NOT NULL,
			size_bytes   BIGINT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_files_school ON files(school_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate files: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, f *File) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO files (id, school_id, name, size_bytes, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.SchoolID, f.Name, f.SizeBytes, f.ContentType, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, schoolID, id string) (*File, error) {
	var f File
	err := p.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, size_bytes, content_type, created_at
		FROM files WHERE school_id = $1 AND id = $2
	`, schoolID, id).Scan(&f.ID, &f.SchoolID, &f.Name, &f.SizeBytes, &f.ContentType, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &f, nil
}

func (p *PostgresStore) List(ctx context.Context, schoolID string) ([]*File, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, school_id, name, size_bytes, content_type, created_at
		FROM files WHERE school_id = $1 ORDER BY created_at
	`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.SchoolID, &f.Name, &f.SizeBytes, &f.ContentType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Delete(ctx context.Context, schoolID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM files WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (p *PostgresStore) StorageBytes(ctx context.Context, schoolID string) (uint64, error) {
	var total uint64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE school_id = $1
	`, schoolID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum storage: %w", err)
	}
	return total, nil
}

var _ Store = (*PostgresStore)(nil)
