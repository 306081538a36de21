package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	mongoadapter "github.com/rovermx/groundstation/internal/adapters/mongo"
	"github.com/rovermx/groundstation/internal/adapters/mqtt"
	"github.com/rovermx/groundstation/internal/adapters/postgres"
)

type Config struct {
	Feed    mqtt.Config   `yaml:"feed"`
	Store   StoreConfig   `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Hub     HubConfig     `yaml:"hub"`
	List    ListConfig    `yaml:"list"`
}

type StoreConfig struct {
	// Driver selects the SampleStore backend: mongo, postgres, or memory.
	Driver   string              `yaml:"driver"`
	Mongo    mongoadapter.Config `yaml:"mongo"`
	Postgres postgres.Config     `yaml:"postgres"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type HubConfig struct {
	SessionBuffer int `yaml:"session_buffer"`
}

type ListConfig struct {
	DefaultLimit int64 `yaml:"default_limit"`
	MaxLimit     int64 `yaml:"max_limit"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	c.Feed.ApplyDefaults()

	if c.Store.Driver == "" {
		c.Store.Driver = "mongo"
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = "telemetry"
	}
	if c.Store.Mongo.Collection == "" {
		c.Store.Mongo.Collection = "samples"
	}
	if c.Store.Postgres.Table == "" {
		c.Store.Postgres.Table = "samples"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Hub.SessionBuffer <= 0 {
		c.Hub.SessionBuffer = 16
	}
	if c.List.DefaultLimit <= 0 {
		c.List.DefaultLimit = 10
	}
	if c.List.MaxLimit <= 0 {
		c.List.MaxLimit = 100
	}
}

func (c *Config) Validate() error {
	if err := c.Feed.Validate(); err != nil {
		return fmt.Errorf("feed config: %w", err)
	}

	switch c.Store.Driver {
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required")
		}
	case "postgres":
		if c.Store.Postgres.ConnString == "" {
			return fmt.Errorf("store.postgres.conn_string is required")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be mongo, postgres, or memory, got %q", c.Store.Driver)
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.List.MaxLimit < c.List.DefaultLimit {
		return fmt.Errorf("list.max_limit must be >= list.default_limit")
	}
	return nil
}
