package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Publisher pushes control commands to the vehicle's command topic. It
// keeps its own broker connection with the client library's reconnect
// enabled; command delivery has none of the subscriber's state-machine
// obligations.
type Publisher struct {
	cfg    Config
	obs    ports.Observability
	client paho.Client
}

func NewPublisher(cfg Config, obs ports.Observability) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CommandTopic == "" {
		return nil, fmt.Errorf("command_topic is required")
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID + "-cmd-" + uuid.NewString()[:8]).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetCleanSession(true)

	client := paho.NewClient(opts)
	if err := waitToken(client.Connect(), cfg.ConnectTimeout, "connect"); err != nil {
		return nil, err
	}

	return &Publisher{cfg: cfg, obs: obs, client: client}, nil
}

func (p *Publisher) Publish(ctx context.Context, cmd *domain.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	if err := waitToken(p.client.Publish(p.cfg.CommandTopic, p.cfg.QoS, false, payload),
		p.cfg.ConnectTimeout, "publish"); err != nil {
		return err
	}
	p.obs.IncCounter("station_commands_published_total", 1)
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

var _ ports.CommandPublisher = (*Publisher)(nil)
