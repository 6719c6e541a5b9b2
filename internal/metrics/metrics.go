package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/lock"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

const (
	namespace = "smartlock"

	// DefaultPath is where the scrape handler is mounted.
	DefaultPath = "/metrics"

	// ReasonSubscriberFull labels codes missed by a slow subscriber.
	ReasonSubscriberFull = "subscriber_full"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// SnapshotFunc returns the current lock record.
type SnapshotFunc func() *domain.Record

// Metrics holds the lock collectors.
type Metrics struct {
	// registry owns every collector below.
	registry *prometheus.Registry
	// commands counts accepted frames per command.
	commands *prometheus.CounterVec
	// results counts emitted result codes.
	results *prometheus.CounterVec
	// dropped counts refused frames and missed codes per reason.
	dropped *prometheus.CounterVec
}

// New registers the collectors. The gauges read snapshot at scrape time.
func New(snapshot SnapshotFunc) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command frames accepted by the lock.",
		}, []string{"command"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Result codes sent by the lock.",
		}, []string{"result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames refused before reaching the lock and codes missed by subscribers.",
		}, []string{"reason"}),
	}

	for _, result := range protocol.AllResults() {
		m.results.WithLabelValues(result.String())
	}

	m.registry.MustRegister(
		m.commands,
		m.results,
		m.dropped,
		collectors.NewGoCollector(),
		gauge("alarm_count", "Consecutive unconfirmed lock polls.", snapshot, func(r *domain.Record) float64 {
			return float64(r.AlarmCount)
		}),
		gauge("valid_codes", "Redeemable access codes.", snapshot, func(r *domain.Record) float64 {
			return float64(r.ValidCodeCount)
		}),
		gauge("status", "Lock status: 0 locked, 1 unlocked, 2 unusable.", snapshot, func(r *domain.Record) float64 {
			return float64(r.Status)
		}),
	)

	return m
}

func gauge(name, help string, snapshot SnapshotFunc, pick func(*domain.Record) float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 {
		if snapshot == nil {
			return 0
		}

		r := snapshot()
		if r == nil {
			return 0
		}

		return pick(r)
	})
}

// ObserveCommand counts one accepted frame.
func (m *Metrics) ObserveCommand(cmd protocol.Command) {
	m.commands.WithLabelValues(cmd.String()).Inc()
}

// ObserveDrop counts one refused frame or missed code.
func (m *Metrics) ObserveDrop(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// ObserveMissedResult counts a code a subscriber could not take.
func (m *Metrics) ObserveMissedResult(protocol.Result) {
	m.ObserveDrop(ReasonSubscriberFull)
}

// Sender counts every result code before passing it to next.
func (m *Metrics) Sender(next lock.Sender) lock.Sender {
	return lock.SenderFunc(func(ctx context.Context, result protocol.Result) error {
		m.results.WithLabelValues(result.String()).Inc()

		return next.SendResult(ctx, result)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

// Serve exposes Handler on address until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, m.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Metrics server shutdown failed", "error", err)
		}
	}()

	logger.InfoKV(ctx, "Serving metrics", "address", address, "path", DefaultPath)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
