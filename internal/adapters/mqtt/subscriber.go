package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Subscriber maintains the subscription to the telemetry topic. It owns
// the reconnect policy: capped exponential backoff, unbounded retries,
// and an explicit connect timeout. Decoded candidates go to the Acceptor
// one at a time; the bounded message channel backpressures the broker
// client while an Accept is in flight.
type Subscriber struct {
	cfg   Config
	obs   ports.Observability
	state atomic.Int32

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// newClient is a seam for tests; defaults to paho.NewClient.
	newClient func(*paho.ClientOptions) paho.Client
}

func NewSubscriber(cfg Config, obs ports.Observability) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Subscriber{
		cfg:       cfg,
		obs:       obs,
		newClient: paho.NewClient,
	}, nil
}

func (s *Subscriber) State() ports.FeedState {
	return ports.FeedState(s.state.Load())
}

func (s *Subscriber) setState(st ports.FeedState) {
	s.state.Store(int32(st))
}

// Start launches the receive loop. A broker that is down at start is not
// an error; the loop keeps retrying until Stop or context cancellation.
func (s *Subscriber) Start(ctx context.Context, a ports.Acceptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("mqtt subscriber already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.run(runCtx, a)
	return nil
}

// Stop terminates the receive loop and waits for any in-flight Accept to
// finish.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	return nil
}

func (s *Subscriber) run(ctx context.Context, a ports.Acceptor) {
	defer s.wg.Done()
	defer s.setState(ports.FeedDisconnected)

	backoff := s.cfg.ReconnectMin

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(ports.FeedConnecting)
		client, msgCh, lostCh, err := s.connect(ctx)
		if err != nil {
			s.obs.LogError("feed_connect_failed",
				&domain.TransportError{Op: "connect", Err: err},
				ports.Field{Key: "broker", Value: s.cfg.BrokerURL})
			s.setState(ports.FeedReconnecting)
			s.obs.IncCounter("station_feed_reconnects_total", 1)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.cfg.ReconnectMax)
			continue
		}

		s.setState(ports.FeedConnected)
		s.obs.LogInfo("feed_connected",
			ports.Field{Key: "topic", Value: s.cfg.Topic})
		backoff = s.cfg.ReconnectMin

		s.consume(ctx, a, msgCh, lostCh)
		client.Disconnect(250)

		if ctx.Err() != nil {
			return
		}
		s.setState(ports.FeedReconnecting)
		s.obs.IncCounter("station_feed_reconnects_total", 1)
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, s.cfg.ReconnectMax)
	}
}

// connect dials the broker and subscribes to the topic. The subscription
// handler blocks on msgCh, which is how one-in-flight backpressure
// reaches the broker client.
func (s *Subscriber) connect(ctx context.Context) (paho.Client, <-chan paho.Message, <-chan error, error) {
	msgCh := make(chan paho.Message, s.cfg.QueueSize)
	lostCh := make(chan error, 1)

	opts := paho.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID + "-" + uuid.NewString()[:8]).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			select {
			case lostCh <- err:
			default:
			}
		})

	client := s.newClient(opts)

	if err := waitToken(client.Connect(), s.cfg.ConnectTimeout, "connect"); err != nil {
		return nil, nil, nil, err
	}

	handler := func(_ paho.Client, m paho.Message) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	}
	if err := waitToken(client.Subscribe(s.cfg.Topic, s.cfg.QoS, handler), s.cfg.ConnectTimeout, "subscribe"); err != nil {
		client.Disconnect(250)
		return nil, nil, nil, err
	}

	return client, msgCh, lostCh, nil
}

// consume drives the Acceptor until the connection drops or the context
// is cancelled. Decode and persistence failures are per-message; the loop
// keeps going.
func (s *Subscriber) consume(ctx context.Context, a ports.Acceptor, msgCh <-chan paho.Message, lostCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-lostCh:
			s.obs.LogError("feed_connection_lost", &domain.TransportError{Op: "read", Err: err})
			return
		case m := <-msgCh:
			s.obs.IncCounter("station_feed_messages_total", 1)

			cand, err := DecodeCandidate(m.Payload())
			if err != nil {
				s.obs.IncCounter("station_feed_decode_errors_total", 1)
				s.obs.LogError("feed_decode_failed", err,
					ports.Field{Key: "topic", Value: m.Topic()})
				continue
			}

			if _, err := a.Accept(ctx, cand); err != nil {
				s.obs.LogError("feed_sample_not_accepted", err)
			}
		}
	}
}

// DecodeCandidate parses a raw feed payload into an unvalidated candidate.
func DecodeCandidate(payload []byte) (*domain.Candidate, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	var cand domain.Candidate
	if err := json.Unmarshal(payload, &cand); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &cand, nil
}

func waitToken(tok paho.Token, timeout time.Duration, op string) error {
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt %s: timed out after %s", op, timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ ports.Feed = (*Subscriber)(nil)
