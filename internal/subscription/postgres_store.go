package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// PostgresStore is a PostgreSQL-backed subscription store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL subscription store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the subscriptions table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			school_id       TEXT PRIMARY KEY,
			plan_id         TEXT,
			status          TEXT NOT NULL,
			renewal_date    TIMESTAMPTZ NOT NULL,
			custom_limits   JSONB,
			packs           JSONB NOT NULL DEFAULT '[]',
			trial_expired   BOOLEAN NOT NULL DEFAULT FALSE,
			trial_days_left INTEGER,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_plan ON subscriptions(plan_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate subscriptions: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, s *Subscription) error {
	customJSON, packsJSON, err := encodeLimits(s)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (school_id, plan_id, status, renewal_date, custom_limits, packs, trial_expired, trial_days_left, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.SchoolID, s.PlanID, s.Status, s.RenewalDate, customJSON, packsJSON, s.TrialExpired, s.TrialDaysLeft, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetBySchool(ctx context.Context, schoolID string) (*Subscription, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT school_id, plan_id, status, renewal_date, custom_limits, packs, trial_expired, trial_days_left, created_at, updated_at
		FROM subscriptions WHERE school_id = $1
	`, schoolID)
	return scanSubscription(row)
}

func (p *PostgresStore) Update(ctx context.Context, s *Subscription) error {
	customJSON, packsJSON, err := encodeLimits(s)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, renewal_date = $4, custom_limits = $5, packs = $6, trial_expired = $7, trial_days_left = $8, updated_at = $9
		WHERE school_id = $1
	`, s.SchoolID, s.PlanID, s.Status, s.RenewalDate, customJSON, packsJSON, s.TrialExpired, s.TrialDaysLeft, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
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

func (p *PostgresStore) Delete(ctx context.Context, schoolID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE school_id = $1`, schoolID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
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

func encodeLimits(s *Subscription) (customJSON, packsJSON []byte, err error) {
	if s.CustomLimits != nil {
		customJSON, err = json.Marshal(s.CustomLimits)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal custom limits: %w", err)
		}
	}
	packs := s.Packs
	if packs == nil {
		packs = []limits.Pack{}
	}
	packsJSON, err = json.Marshal(packs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal packs: %w", err)
	}
	return customJSON, packsJSON, nil
}

func scanSubscription(row *sql.Row) (*Subscription, error) {
	var s Subscription
	var customJSON, packsJSON []byte
	err := row.Scan(&s.SchoolID, &s.PlanID, &s.Status, &s.RenewalDate, &customJSON, &packsJSON, &s.TrialExpired, &s.TrialDaysLeft, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	if len(customJSON) > 0 {
		var cl limits.UsageLimit
		if err := json.Unmarshal(customJSON, &cl); err != nil {
			return nil, fmt.Errorf("unmarshal custom limits: %w", err)
		}
		s.CustomLimits = &cl
	}
	if len(packsJSON) > 0 {
		if err := json.Unmarshal(packsJSON, &s.Packs); err != nil {
			return nil, fmt.Errorf("unmarshal packs: %w", err)
		}
	}
	return &s, nil
}

var _ Store = (*PostgresStore)(nil)
