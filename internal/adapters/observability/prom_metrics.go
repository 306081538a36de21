package observability

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovermx/groundstation/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the station's metric set on the given registry. A
// nil registry falls back to the default one.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_samples_ingested_total",
		Help: "Samples persisted and announced to live viewers.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_samples_rejected_total",
		Help: "Candidates rejected before persistence (missing required fields).",
	})
	storeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_store_errors_total",
		Help: "Failed store operations on the ingestion path.",
	})
	feedMsgs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_feed_messages_total",
		Help: "Raw messages received from the telemetry topic.",
	})
	decodeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_feed_decode_errors_total",
		Help: "Feed messages discarded because the payload did not decode.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_feed_reconnects_total",
		Help: "Reconnection attempts after a lost feed connection.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_sessions_dropped_total",
		Help: "Viewer sessions unregistered because their buffer overflowed.",
	})
	commands := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "station_commands_published_total",
		Help: "Control commands published to the vehicle.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_live_sessions",
		Help: "Currently registered live-push viewer sessions.",
	})
	temperature := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_temperature_celsius",
		Help: "Latest temperature reading ingested from the feed.",
	})
	pressure := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_pressure_hpa",
		Help: "Latest pressure reading ingested from the feed.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "station_persist_latency_seconds",
		Help:    "Latency of the store insert on the ingestion path.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(ingested, rejected, storeErrs, feedMsgs, decodeErrs,
		reconnects, dropped, commands, sessions, temperature, pressure, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"station_samples_ingested_total":   ingested,
			"station_samples_rejected_total":   rejected,
			"station_store_errors_total":       storeErrs,
			"station_feed_messages_total":      feedMsgs,
			"station_feed_decode_errors_total": decodeErrs,
			"station_feed_reconnects_total":    reconnects,
			"station_sessions_dropped_total":   dropped,
			"station_commands_published_total": commands,
		},
		gauges: map[string]prometheus.Gauge{
			"station_live_sessions":       sessions,
			"station_temperature_celsius": temperature,
			"station_pressure_hpa":        pressure,
		},
		histos: map[string]prometheus.Observer{
			"station_persist_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	out := ""
	for _, f := range fields {
		out += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
