package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsCounters(t *testing.T) {
	obs := NewPromObs(prometheus.NewRegistry())

	obs.IncCounter("station_samples_ingested_total", 3)
	obs.IncCounter("station_samples_rejected_total", 1)
	obs.IncCounter("does_not_exist", 7)

	if got := testutil.ToFloat64(obs.counters["station_samples_ingested_total"]); got != 3 {
		t.Fatalf("expected ingested counter 3, got %f", got)
	}
	if got := testutil.ToFloat64(obs.counters["station_samples_rejected_total"]); got != 1 {
		t.Fatalf("expected rejected counter 1, got %f", got)
	}
}

func TestPromObsGauges(t *testing.T) {
	obs := NewPromObs(prometheus.NewRegistry())

	obs.SetGauge("station_live_sessions", 2)
	obs.SetGauge("station_temperature_celsius", 25.4)

	if got := testutil.ToFloat64(obs.gauges["station_live_sessions"]); got != 2 {
		t.Fatalf("expected session gauge 2, got %f", got)
	}
	if got := testutil.ToFloat64(obs.gauges["station_temperature_celsius"]); got != 25.4 {
		t.Fatalf("expected temperature gauge 25.4, got %f", got)
	}
}

func TestPromObsSeparateRegistries(t *testing.T) {
	// Two instances must not collide as long as they use their own registry.
	a := NewPromObs(prometheus.NewRegistry())
	b := NewPromObs(prometheus.NewRegistry())

	a.IncCounter("station_feed_messages_total", 5)
	if got := testutil.ToFloat64(b.counters["station_feed_messages_total"]); got != 0 {
		t.Fatalf("registries should be independent, got %f", got)
	}
}
