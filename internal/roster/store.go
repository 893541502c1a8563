package roster

import "context"

// Store persists roster records. It also serves as the usage source for the
// students and teachers resources.
type Store interface {
	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, schoolID, id string) (*Student, error)
	ListStudents(ctx context.Context, schoolID string, limit, offset int) ([]*Student, error)
	DeleteStudent(ctx context.Context, schoolID, id string) error
	CountStudents(ctx context.Context, schoolID string) (uint64, error)

	CreateTeacher(ctx context.Context, t *Teacher) error
	GetTeacher(ctx context.Context, schoolID, id string) (*Teacher, error)
	ListTeachers(ctx context.Context, schoolID string, limit, offset int) ([]*Teacher, error)
	DeleteTeacher(ctx context.Context, schoolID, id string) error
	CountTeachers(ctx context.Context, schoolID string) (uint64, error)
}
