// Package app wires the configured components into a running service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/acasal/alertd/api/alerts"
	"github.com/acasal/alertd/config"
	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/core/match"
	coremetrics "github.com/acasal/alertd/core/metrics"
	corestore "github.com/acasal/alertd/core/store"
	"github.com/acasal/alertd/infra/logger"
	"github.com/acasal/alertd/infra/metrics"
	"github.com/acasal/alertd/infra/mqtt"
	"github.com/acasal/alertd/infra/store"
	"github.com/acasal/alertd/internal/eventbus"
)

// Service orchestrates the dispatch engine, MQTT listener and status API.
type Service struct {
	Engine   *dispatch.Engine
	store    corestore.Store
	listener *mqtt.Listener
	bus      eventbus.EventBus
	sink     coremetrics.Sink
	log      logger.Logger
	cfg      *config.Config
}

// New creates a Service from the configuration. The MQTT connection is not
// opened until Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service", cfg.Logging.Level)

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if cfg.Store.SeedFile != "" {
		rs, err := config.LoadResources(cfg.Store.SeedFile)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("seed file: %w", err)
		}
		if err := st.SeedResources(context.Background(), rs); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed resources: %w", err)
		}
		logg.Infof("seeded %d resources from %s", len(rs), cfg.Store.SeedFile)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	timeout := time.Duration(cfg.Dispatch.PersistTimeoutSeconds) * time.Second
	engine, err := dispatch.New(st, match.New(st), logg, sink, bus, timeout)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}

	return &Service{Engine: engine, store: st, bus: bus, sink: sink, log: logg, cfg: cfg}, nil
}

// Run connects to the broker and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)

	listener, err := mqtt.NewListener(s.cfg.MQTT, s.Engine, nil, logger.New("mqtt-listener", s.cfg.Logging.Level))
	if err != nil {
		return fmt.Errorf("mqtt listener: %w", err)
	}
	s.listener = listener
	notifier := mqtt.NewNotifier(listener)
	listener.SetNotifier(notifier)

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, promAddr(s.cfg.Metrics.PrometheusPort)); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled {
		handler := alerts.NewHandler(s.store, s.Engine, s.cfg.API.Token)
		srv := &http.Server{Addr: s.cfg.API.Address, Handler: handler}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.Errorf("api shutdown: %v", err)
			}
		}()
		go func() {
			s.log.Infof("status API listening on %s", s.cfg.API.Address)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	s.log.Infof("alert dispatch service started, broker %s", s.cfg.MQTT.Broker)
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.listener != nil {
		s.listener.Disconnect()
	}
	s.bus.Close()
	return s.store.Close()
}

func promAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
