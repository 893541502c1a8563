package modules

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier publishes module set changes to registered webhooks.
type Notifier interface {
	EmitModulesUpdated(schoolID string, moduleIDs []string)
}

// Service manages the per-school module ledger.
type Service struct {
	store  Store
	notify Notifier
	logger *slog.Logger
}

// NewService creates a module service.
func NewService(store Store, notify Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notify: notify, logger: logger}
}

// List returns the school's full module set, active or not.
func (s *Service) List(ctx context.Context, schoolID string) ([]ModuleSubscription, error) {
	return s.store.List(ctx, schoolID)
}

// ListActive returns only the modules currently switched on.
func (s *Service) ListActive(ctx context.Context, schoolID string) ([]ModuleSubscription, error) {
	mods, err := s.store.List(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	active := mods[:0]
	for _, m := range mods {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

// SetModules replaces the school's module set. Every entry is validated
// before anything is written.
func (s *Service) SetModules(ctx context.Context, schoolID string, mods []ModuleSubscription) error {
	seen := make(map[string]bool, len(mods))
	for i := range mods {
		if err := mods[i].Validate(); err != nil {
			return err
		}
		if seen[mods[i].ModuleID] {
			return fmt.Errorf("modules: duplicate module id %q", mods[i].ModuleID)
		}
		seen[mods[i].ModuleID] = true
	}

	if err := s.store.Replace(ctx, schoolID, mods); err != nil {
		return err
	}

	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		if m.Active {
			ids = append(ids, m.ModuleID)
		}
	}
	s.logger.Info("modules replaced", "school", schoolID, "active", len(ids), "total", len(mods))
	if s.notify != nil {
		s.notify.EmitModulesUpdated(schoolID, ids)
	}
	return nil
}

// MonthlyCharge returns the combined monthly price of the school's active
// modules as a decimal string.
func (s *Service) MonthlyCharge(ctx context.Context, schoolID string) (string, error) {
	mods, err := s.store.List(ctx, schoolID)
	if err != nil {
		return "", err
	}
	return MonthlyTotal(mods)
}
