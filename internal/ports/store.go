package ports

import (
	"context"

	"github.com/rovermx/groundstation/internal/domain"
)

// ListQuery selects a page of the historical record. Sort order is always
// timestamp descending; Search matches the direction field
// case-insensitively.
type ListQuery struct {
	Page   int64
	Limit  int64
	Search string
}

// Offset returns the number of samples to skip for the requested page.
func (q ListQuery) Offset() int64 {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// SampleStore is the durable record of every accepted sample. Insert
// assigns the id; all other operations address samples by that id and
// return domain.ErrNotFound on a miss.
type SampleStore interface {
	Insert(ctx context.Context, s *domain.Sample) (*domain.Sample, error)
	FindByID(ctx context.Context, id string) (*domain.Sample, error)
	Find(ctx context.Context, q ListQuery) ([]*domain.Sample, error)
	Count(ctx context.Context, q ListQuery) (int64, error)
	UpdateByID(ctx context.Context, id string, u domain.Update) (*domain.Sample, error)
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
