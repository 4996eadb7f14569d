package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/acasal/alertd/core/metrics"
)

// PromSink records processed alerts in Prometheus metrics.
type PromSink struct {
	dispatches  *prometheus.CounterVec
	eta         *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_dispatches_total",
		Help: "Total number of processed alerts by category and outcome",
	}, []string{"category", "outcome"})
	eta := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alert_assignment_eta_seconds",
		Help:    "Estimated time of arrival for assigned resources",
		Buckets: []float64{60, 120, 300, 600, 1200, 1800, 3600},
	}, []string{"category"})
	// core/dispatch owns alert_resolutions_total on the default registry,
	// so the sink's counter carries its own name.
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_resolution_records_total",
		Help: "Total number of recorded resolutions by whether a resource was released",
	}, []string{"released"})

	if err := reg.Register(dispatches); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			dispatches = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(eta); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			eta = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(resolutions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			resolutions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{dispatches: dispatches, eta: eta, resolutions: resolutions}, nil
}

// RecordDispatch increments the counter for each processed alert and, for
// assigned outcomes, observes the estimated arrival time.
func (s *PromSink) RecordDispatch(recs []coremetrics.DispatchRecord) error {
	for _, r := range recs {
		s.dispatches.WithLabelValues(string(r.Category), r.Outcome).Inc()
		if r.Resource != "" {
			s.eta.WithLabelValues(string(r.Category)).Observe(float64(r.ETASeconds))
		}
	}
	return nil
}

// RecordResolution counts resolve calls split by whether a resource was released.
func (s *PromSink) RecordResolution(rec coremetrics.ResolutionRecord) error {
	if rec.Released {
		s.resolutions.WithLabelValues("true").Inc()
	} else {
		s.resolutions.WithLabelValues("false").Inc()
	}
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the given address.
// The server runs until the provided context is canceled.
// A dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
