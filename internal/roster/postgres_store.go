package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is a PostgreSQL-backed roster store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL roster store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the students and teachers tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			id             TEXT PRIMARY KEY,
			school_id      TEXT NOT NULL,
			name           TEXT NOT NULL,
			admission_no   TEXT NOT NULL DEFAULT '',
			guardian_phone TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_students_school ON students(school_id);
		CREATE TABLE IF NOT EXISTS teachers (
			id         TEXT PRIMARY KEY,
			school_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			subject    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_teachers_school ON teachers(school_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate roster: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateStudent(ctx context.Context, s *Student) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO students (id, school_id, name, admission_no, guardian_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.SchoolID, s.Name, s.AdmissionNo, s.GuardianPhone, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetStudent(ctx context.Context, schoolID, id string) (*Student, error) {
	var s Student
	err := p.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, admission_no, guardian_phone, created_at
		FROM students WHERE school_id = $1 AND id = $2
	`, schoolID, id).Scan(&s.ID, &s.SchoolID, &s.Name, &s.AdmissionNo, &s.GuardianPhone, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) ListStudents(ctx context.Context, schoolID string, limit, offset int) ([]*Student, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, school_id, name, admission_no, guardian_phone, created_at
		FROM students WHERE school_id = $1
		ORDER BY created_at LIMIT $2 OFFSET $3
	`, schoolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.Name, &s.AdmissionNo, &s.GuardianPhone, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteStudent(ctx context.Context, schoolID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM students WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (p *PostgresStore) CountStudents(ctx context.Context, schoolID string) (uint64, error) {
	var n uint64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE school_id = $1`, schoolID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) CreateTeacher(ctx context.Context, t *Teacher) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO teachers (id, school_id, name, email, subject, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.SchoolID, t.Name, t.Email, t.Subject, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetTeacher(ctx context.Context, schoolID, id string) (*Teacher, error) {
	var t Teacher
	err := p.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, email, subject, created_at
		FROM teachers WHERE school_id = $1 AND id = $2
	`, schoolID, id).Scan(&t.ID, &t.SchoolID, &t.Name, &t.Email, &t.Subject, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeacherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan teacher: %w", err)
	}
	return &t, nil
}

func (p *PostgresStore) ListTeachers(ctx context.Context, schoolID string, limit, offset int) ([]*Teacher, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, school_id, name, email, subject, created_at
		FROM teachers WHERE school_id = $1
		ORDER BY created_at LIMIT $2 OFFSET $3
	`, schoolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.SchoolID, &t.Name, &t.Email, &t.Subject, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteTeacher(ctx context.Context, schoolID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM teachers WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTeacherNotFound
	}
	return nil
}

func (p *PostgresStore) CountTeachers(ctx context.Context, schoolID string) (uint64, error) {
	var n uint64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teachers WHERE school_id = $1`, schoolID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
