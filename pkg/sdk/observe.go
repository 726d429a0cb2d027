package ragchat

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// clientMetrics are the per-operation collectors of an SDK Client.
type clientMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragchat",
		Subsystem: "client",
		Name:      "calls_total",
		Help:      "Client calls by operation and outcome (ok or error kind).",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ragchat",
		Subsystem: "client",
		Name:      "call_duration_seconds",
		Help:      "Client call latency by operation.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"operation"})

	var err error
	if calls, err = reuseCollector(reg, calls); err != nil {
		return nil, err
	}
	if latency, err = reuseCollector(reg, latency); err != nil {
		return nil, err
	}
	return &clientMetrics{calls: calls, latency: latency}, nil
}

// reuseCollector registers c, or returns the collector already registered under the same
// descriptor so several clients can share one registry.
func reuseCollector[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("ragchat: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("ragchat: metric registered with a different type: %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer logs and counts client calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	m, err := newClientMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	return ErrorKind(err)
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)
	kind := outcome(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, kind).Inc()
		o.metrics.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("ragchat call failed", "op", op, "kind", kind, "elapsed", elapsed, "error", err)
		return
	}
	o.logger.Debug("ragchat call", "op", op, "elapsed", elapsed)
}
