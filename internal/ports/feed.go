package ports

import (
	"context"

	"github.com/rovermx/groundstation/internal/domain"
)

// FeedState is the subscriber's connection state.
type FeedState int32

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedConnected
	FeedReconnecting
)

func (s FeedState) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedConnected:
		return "connected"
	case FeedReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Acceptor receives decoded candidates one at a time. The feed must not
// read the next message until Accept returns.
type Acceptor interface {
	Accept(ctx context.Context, c *domain.Candidate) (*domain.Sample, error)
}

// Feed maintains the subscription to the telemetry topic and drives the
// Acceptor. Start returns once the receive loop is running; Stop blocks
// until any in-flight Accept has finished.
type Feed interface {
	Start(ctx context.Context, a Acceptor) error
	Stop() error
	State() FeedState
}

// CommandPublisher pushes control messages back to the vehicle.
type CommandPublisher interface {
	Publish(ctx context.Context, cmd *domain.Command) error
}
