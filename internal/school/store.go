package school

import "context"

// Store persists schools and their branches.
type Store interface {
	Create(ctx context.Context, s *School) error
	Get(ctx context.Context, id string) (*School, error)
	GetBySlug(ctx context.Context, slug string) (*School, error)
	List(ctx context.Context) ([]*School, error)
	Update(ctx context.Context, s *School) error

	CreateBranch(ctx context.Context, b *Branch) error
	ListBranches(ctx context.Context, schoolID string) ([]*Branch, error)
	DeleteBranch(ctx context.Context, schoolID, branchID string) error
	CountBranches(ctx context.Context, schoolID string) (uint64, error)
}
