package ports

import "github.com/rovermx/groundstation/internal/domain"

// Broadcaster fans a freshly persisted sample out to every live viewer.
// Broadcast never blocks on a slow viewer and never returns an error; a
// viewer that cannot keep up is dropped by the implementation.
type Broadcaster interface {
	Broadcast(s *domain.Sample)
}
