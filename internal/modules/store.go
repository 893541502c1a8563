package modules

import "context"

// Store persists each school's module set.
type Store interface {
	List(ctx context.Context, schoolID string) ([]ModuleSubscription, error)
	// Replace swaps the school's entire module set atomically. Readers never
	// observe a partially updated set.
	Replace(ctx context.Context, schoolID string, mods []ModuleSubscription) error
}
