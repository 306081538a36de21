package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Store is a mutex-owned in-memory SampleStore. It backs tests and the
// "memory" store driver for running the station without a database.
type Store struct {
	mu      sync.Mutex
	samples []*domain.Sample
}

func New() *Store {
	return &Store{}
}

func (s *Store) Insert(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneSample(sample)
	stored.ID = uuid.NewString()
	s.samples = append(s.samples, stored)
	return cloneSample(stored), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.samples {
		if it.ID == id {
			return cloneSample(it), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Find(ctx context.Context, q ports.ListQuery) ([]*domain.Sample, error) {
	// Sorting, slicing, and cloning all touch the shared sample structs,
	// so the whole read stays under the lock; UpdateByID mutates them in
	// place.
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(q)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	offset := q.Offset()
	if offset >= int64(len(matched)) {
		return []*domain.Sample{}, nil
	}
	matched = matched[offset:]
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*domain.Sample, len(matched))
	for i, it := range matched {
		out[i] = cloneSample(it)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, q ports.ListQuery) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.match(q))), nil
}

func (s *Store) UpdateByID(ctx context.Context, id string, u domain.Update) (*domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.samples {
		if it.ID == id {
			u.Apply(it)
			return cloneSample(it), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.samples {
		if it.ID == id {
			s.samples = append(s.samples[:i], s.samples[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close(ctx context.Context) error { return nil }

// match filters under s.mu and returns the matching samples (not cloned).
func (s *Store) match(q ports.ListQuery) []*domain.Sample {
	if q.Search == "" {
		return append([]*domain.Sample(nil), s.samples...)
	}
	needle := strings.ToLower(q.Search)
	var out []*domain.Sample
	for _, it := range s.samples {
		if strings.Contains(strings.ToLower(it.Direction), needle) {
			out = append(out, it)
		}
	}
	return out
}

func cloneSample(s *domain.Sample) *domain.Sample {
	c := *s
	if s.Altitude != nil {
		alt := *s.Altitude
		c.Altitude = &alt
	}
	if s.LineTracking != nil {
		lt := *s.LineTracking
		c.LineTracking = &lt
	}
	return &c
}

var _ ports.SampleStore = (*Store)(nil)
