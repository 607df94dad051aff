// Package metrics exposes monitor progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/pacewatch/internal/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Metrics holds the gauges and counters for one monitor.
// It has its own registry so tests can create as many as they like.
type Metrics struct {
	Progress       prometheus.Gauge
	Pace           *prometheus.GaugeVec
	ETASeconds     *prometheus.GaugeVec
	Completed      prometheus.Gauge
	SamplesTotal   prometheus.Counter
	FetchErrors    *prometheus.CounterVec
	FetchLatency   prometheus.Histogram
	LastSampleTime prometheus.Gauge
	registry       *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Progress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pacewatch_progress_ratio",
			Help: "Latest observed completion fraction (0-1)",
		}),
		Pace: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pacewatch_pace_per_hour",
				Help: "Estimated completion fraction gained per hour",
			},
			[]string{"window"},
		),
		ETASeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pacewatch_eta_seconds",
				Help: "Projected seconds until completion, -1 when no projection applies",
			},
			[]string{"window"},
		),
		Completed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pacewatch_completed",
			Help: "1 once the migration has reached 100%",
		}),
		SamplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacewatch_samples_total",
			Help: "Samples recorded by this process",
		}),
		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacewatch_fetch_errors_total",
				Help: "Failed progress reads by kind",
			},
			[]string{"kind"},
		),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pacewatch_fetch_latency_seconds",
			Help:    "Time spent reading progress from the status page",
			Buckets: prometheus.DefBuckets,
		}),
		LastSampleTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pacewatch_last_sample_timestamp_seconds",
			Help: "Unix time of the latest recorded sample",
		}),
		registry: reg,
	}
}

// Attach subscribes the metrics to a monitor's event bus.
func (m *Metrics) Attach(bus *monitor.EventBus) {
	bus.Subscribe(monitor.EventSampleRecorded, m.onSample)
	bus.Subscribe(monitor.EventReport, m.onReport)
	bus.Subscribe(monitor.EventFetchFailed, m.onFetchFailed)
	bus.Subscribe(monitor.EventCompleted, m.onCompleted)
}

func (m *Metrics) onSample(e monitor.Event) {
	if e.Sample == nil {
		return
	}
	m.SamplesTotal.Inc()
	m.FetchLatency.Observe(e.Latency.Seconds())
	m.Progress.Set(e.Sample.Progress)
	m.LastSampleTime.Set(float64(e.Sample.Timestamp.UnixNano()) / 1e9)
}

func (m *Metrics) onReport(e monitor.Event) {
	r := e.Report
	if r == nil {
		return
	}
	m.Pace.WithLabelValues("all").Set(float64(r.AllTime))
	m.Pace.WithLabelValues("trailing").Set(float64(r.Trailing))
	m.ETASeconds.WithLabelValues("all").Set(etaSeconds(r.AllTimeETA.Applicable, r.AllTimeETA.Remaining.TotalSeconds()))
	m.ETASeconds.WithLabelValues("trailing").Set(etaSeconds(r.TrailingETA.Applicable, r.TrailingETA.Remaining.TotalSeconds()))
}

func (m *Metrics) onFetchFailed(e monitor.Event) {
	kind := e.Kind
	if kind == "" {
		kind = "unknown"
	}
	m.FetchErrors.WithLabelValues(kind).Inc()
	m.FetchLatency.Observe(e.Latency.Seconds())
}

func (m *Metrics) onCompleted(e monitor.Event) {
	m.Completed.Set(1)
	if e.Summary != nil {
		m.Progress.Set(e.Summary.Last.Progress)
	}
	m.ETASeconds.WithLabelValues("all").Set(0)
	m.ETASeconds.WithLabelValues("trailing").Set(0)
}

func etaSeconds(applicable bool, seconds int64) float64 {
	if !applicable {
		return -1
	}
	return float64(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start serves /metrics on addr in the background until ctx is cancelled.
// It returns the bound address once the listener is up.
func (m *Metrics) Start(ctx context.Context, addr string, log *bolt.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown error")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return ln.Addr(), nil
}
