package mqtt

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime details for the broker connection shared by
// the subscriber and the command publisher.
type Config struct {
	BrokerURL      string        `yaml:"broker_url"`
	Topic          string        `yaml:"topic"`
	CommandTopic   string        `yaml:"command_topic"`
	ClientID       string        `yaml:"client_id"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectMin   time.Duration `yaml:"reconnect_min"`
	ReconnectMax   time.Duration `yaml:"reconnect_max"`
	QueueSize      int           `yaml:"queue_size"`
}

// UnmarshalYAML accepts durations in the "10s" / "500ms" form.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BrokerURL      string `yaml:"broker_url"`
		Topic          string `yaml:"topic"`
		CommandTopic   string `yaml:"command_topic"`
		ClientID       string `yaml:"client_id"`
		QoS            byte   `yaml:"qos"`
		ConnectTimeout string `yaml:"connect_timeout"`
		ReconnectMin   string `yaml:"reconnect_min"`
		ReconnectMax   string `yaml:"reconnect_max"`
		QueueSize      int    `yaml:"queue_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.BrokerURL = raw.BrokerURL
	c.Topic = raw.Topic
	c.CommandTopic = raw.CommandTopic
	c.ClientID = raw.ClientID
	c.QoS = raw.QoS
	c.QueueSize = raw.QueueSize

	for _, d := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
		{"reconnect_min", raw.ReconnectMin, &c.ReconnectMin},
		{"reconnect_max", raw.ReconnectMax, &c.ReconnectMax},
	} {
		if d.in == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.in)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.out = parsed
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "groundstation"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = 30 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
}

func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	if c.Topic == "" {
		return errors.New("topic is required")
	}
	if c.QoS > 2 {
		return errors.New("qos must be 0, 1 or 2")
	}
	return nil
}
