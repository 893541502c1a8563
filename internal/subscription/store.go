package subscription

import "context"

// Store persists subscription records, keyed by school.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	GetBySchool(ctx context.Context, schoolID string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, schoolID string) error
}
