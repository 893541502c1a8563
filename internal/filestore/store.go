package filestore

import "context"

// Store persists file metadata. It also serves as the usage source for the
// storage resource.
type Store interface {
	Create(ctx context.Context, f *File) error
	Get(ctx context.Context, schoolID, id string) (*File, error)
	List(ctx context.Context, schoolID string) ([]*File, error)
	Delete(ctx context.Context, schoolID, id string) error
	StorageBytes(ctx context.Context, schoolID string) (uint64, error)
}
