package groundstation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovermx/groundstation/internal/adapters/memstore"
	mongoadapter "github.com/rovermx/groundstation/internal/adapters/mongo"
	"github.com/rovermx/groundstation/internal/adapters/mqtt"
	"github.com/rovermx/groundstation/internal/adapters/observability"
	"github.com/rovermx/groundstation/internal/adapters/postgres"
	"github.com/rovermx/groundstation/internal/api"
	"github.com/rovermx/groundstation/internal/app/config"
	"github.com/rovermx/groundstation/internal/app/hub"
	"github.com/rovermx/groundstation/internal/app/ingest"
	"github.com/rovermx/groundstation/internal/ports"
)

// Config is re-exported so embedders do not import internal packages.
type Config = config.Config

// LoadConfig reads and validates a station configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Option customizes the dependencies used by Runtime.
type Option func(*overrides)

type overrides struct {
	store         ports.SampleStore
	feed          ports.Feed
	publisher     ports.CommandPublisher
	observability ports.Observability
}

// WithStore injects a custom SampleStore implementation.
func WithStore(s ports.SampleStore) Option {
	return func(o *overrides) { o.store = s }
}

// WithFeed injects a custom feed (simulators, replay files, tests).
func WithFeed(f ports.Feed) Option {
	return func(o *overrides) { o.feed = f }
}

// WithCommandPublisher injects a custom command channel.
func WithCommandPublisher(p ports.CommandPublisher) Option {
	return func(o *overrides) { o.publisher = p }
}

// WithObservability plugs in a custom metrics/logging backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.observability = obs }
}

// Runtime wires the feed → coordinator → {store, hub} pipeline together
// with the viewer API and the metrics endpoint, and exposes lifecycle
// hooks for embedding the station inside another service.
type Runtime struct {
	cfg  *Config
	obs  ports.Observability
	reg  *prometheus.Registry
	hub  *hub.Hub
	feed ports.Feed

	store       ports.SampleStore
	coordinator *ingest.Coordinator
	publisher   ports.CommandPublisher

	apiSrv     *http.Server
	metricsSrv *http.Server

	feedCancel context.CancelFunc
}

// New bootstraps the default adapters for the configured store driver,
// the MQTT subscriber, and Prometheus observability. A store that is
// unreachable at boot is a fatal error; an unreachable broker is not —
// the subscriber retries forever.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	r := &Runtime{cfg: cfg}

	r.obs = ov.observability
	if r.obs == nil {
		r.reg = prometheus.NewRegistry()
		r.obs = observability.NewPromObs(r.reg)
	}

	var err error
	r.store = ov.store
	if r.store == nil {
		r.store, err = openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	r.hub = hub.New(cfg.Hub.SessionBuffer, r.obs)
	r.coordinator = ingest.New(r.store, r.hub, r.obs)

	r.feed = ov.feed
	if r.feed == nil {
		r.feed, err = mqtt.NewSubscriber(cfg.Feed, r.obs)
		if err != nil {
			return nil, err
		}
	}

	r.publisher = ov.publisher
	if r.publisher == nil && cfg.Feed.CommandTopic != "" {
		// A dead broker must not keep the station from booting; commands
		// simply stay unavailable.
		pub, err := mqtt.NewPublisher(cfg.Feed, r.obs)
		if err != nil {
			r.obs.LogError("command_publisher_unavailable", err)
		} else {
			r.publisher = pub
		}
	}

	apiServer := api.NewServer(r.store, r.hub, r.obs, api.Options{
		Commands:     r.publisher,
		DefaultLimit: cfg.List.DefaultLimit,
		MaxLimit:     cfg.List.MaxLimit,
	})
	r.apiSrv = &http.Server{Addr: cfg.HTTP.Addr, Handler: apiServer.Handler()}

	return r, nil
}

func openStore(ctx context.Context, cfg *Config) (ports.SampleStore, error) {
	switch cfg.Store.Driver {
	case "mongo":
		return mongoadapter.Connect(ctx, cfg.Store.Mongo)
	case "postgres":
		return postgres.Open(ctx, cfg.Store.Postgres)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Coordinator exposes the ingestion entry point, mainly for embedders
// that feed candidates from their own transport.
func (r *Runtime) Coordinator() *ingest.Coordinator { return r.coordinator }

// Store exposes the wired sample store.
func (r *Runtime) Store() ports.SampleStore { return r.store }

// Hub exposes the distribution hub.
func (r *Runtime) Hub() *hub.Hub { return r.hub }

// Start launches the feed subscriber, the viewer API, and the metrics
// endpoint. It returns immediately; call Run to block on a context.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	r.feedCancel = cancel
	if err := r.feed.Start(feedCtx, r.coordinator); err != nil {
		cancel()
		return fmt.Errorf("start feed: %w", err)
	}

	go func() {
		if err := r.apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server exited: %v", err)
		}
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the context is cancelled, then
// attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the pipeline in dependency order: the subscriber first
// (no new accepts; waits for the in-flight one), then the viewer
// surfaces, then the store connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if err := r.feed.Stop(); err != nil {
		errs = append(errs, err)
	}
	if r.feedCancel != nil {
		r.feedCancel()
	}

	if r.apiSrv != nil {
		if err := r.apiSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	r.hub.Close()

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if closer, ok := r.publisher.(interface{ Close() }); ok && closer != nil {
		closer.Close()
	}

	if err := r.store.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	if r.reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := r.store.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{Addr: r.cfg.Metrics.Addr, Handler: mux}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}
