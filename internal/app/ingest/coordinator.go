package ingest

import (
	"context"
	"time"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Coordinator owns the persist-then-announce invariant: a candidate is
// validated, durably inserted, and only then broadcast. A rejected or
// failed candidate produces zero broadcasts; a persisted one produces
// exactly one.
type Coordinator struct {
	store ports.SampleStore
	hub   ports.Broadcaster
	obs   ports.Observability
	now   func() time.Time
}

func New(store ports.SampleStore, hub ports.Broadcaster, obs ports.Observability) *Coordinator {
	return &Coordinator{
		store: store,
		hub:   hub,
		obs:   obs,
		now:   time.Now,
	}
}

// Accept validates and persists one candidate and announces the persisted
// sample to live viewers. The returned sample carries the store-assigned
// id and the effective timestamp.
func (c *Coordinator) Accept(ctx context.Context, cand *domain.Candidate) (*domain.Sample, error) {
	if err := cand.Validate(); err != nil {
		c.obs.IncCounter("station_samples_rejected_total", 1)
		return nil, err
	}

	sample := cand.Sample(c.now())

	start := time.Now()
	stored, err := c.store.Insert(ctx, sample)
	if err != nil {
		c.obs.IncCounter("station_store_errors_total", 1)
		return nil, &domain.StoreError{Op: "insert", Err: err}
	}
	c.obs.ObserveLatency("station_persist_latency_seconds", time.Since(start).Seconds())

	c.obs.IncCounter("station_samples_ingested_total", 1)
	c.obs.SetGauge("station_temperature_celsius", stored.Temperature)
	c.obs.SetGauge("station_pressure_hpa", stored.Pressure)

	c.hub.Broadcast(stored)
	return stored, nil
}

var _ ports.Acceptor = (*Coordinator)(nil)
