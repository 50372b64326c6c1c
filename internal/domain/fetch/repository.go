package fetch

import "context"

// Repository defines the fetch job repository interface
type Repository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Job, int64, error)
}
