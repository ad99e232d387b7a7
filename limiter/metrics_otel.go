package limiter

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments admission decisions with OpenTelemetry counters.
// Only the metric API is used; wiring a meter provider and exporters is
// the host application's concern. All record methods are safe on a nil
// receiver, so an uninstrumented installation pays nothing.
type Metrics struct {
	meter      metric.Meter
	registered bool
	mu         sync.RWMutex

	requestsTotal metric.Int64Counter
	allowedTotal  metric.Int64Counter
	deniedTotal   metric.Int64Counter
	failOpenTotal metric.Int64Counter
	reloadsTotal  metric.Int64Counter
}

// NewMetrics creates an unregistered metrics sink.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RegisterMetrics creates all instruments on meter. Idempotent.
func (m *Metrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	m.meter = meter

	var err error
	if m.requestsTotal, err = meter.Int64Counter(
		"ratelimit_requests_total",
		metric.WithDescription("Total number of evaluated requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}
	if m.allowedTotal, err = meter.Int64Counter(
		"ratelimit_allowed_total",
		metric.WithDescription("Total number of allowed requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}
	if m.deniedTotal, err = meter.Int64Counter(
		"ratelimit_denied_total",
		metric.WithDescription("Total number of denied requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}
	if m.failOpenTotal, err = meter.Int64Counter(
		"ratelimit_failopen_total",
		metric.WithDescription("Total number of requests passed through after an evaluation failure"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}
	if m.reloadsTotal, err = meter.Int64Counter(
		"ratelimit_script_reloads_total",
		metric.WithDescription("Total number of NOSCRIPT-triggered script reloads"),
		metric.WithUnit("{reload}"),
	); err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *Metrics) ready() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// RecordAllowed counts one allowed request.
func (m *Metrics) RecordAllowed(ctx context.Context, limiterID string) {
	if !m.ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("limiter", limiterID))
	m.requestsTotal.Add(ctx, 1, attrs)
	m.allowedTotal.Add(ctx, 1, attrs)
}

// RecordDenied counts one denied request.
func (m *Metrics) RecordDenied(ctx context.Context, limiterID string) {
	if !m.ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("limiter", limiterID))
	m.requestsTotal.Add(ctx, 1, attrs)
	m.deniedTotal.Add(ctx, 1, attrs)
}

// RecordFailOpen counts one request passed through after a failure.
func (m *Metrics) RecordFailOpen(ctx context.Context, limiterID string) {
	if !m.ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("limiter", limiterID))
	m.requestsTotal.Add(ctx, 1, attrs)
	m.failOpenTotal.Add(ctx, 1, attrs)
}

// RecordReload counts one NOSCRIPT-triggered reload.
func (m *Metrics) RecordReload(ctx context.Context, scriptID string) {
	if !m.ready() {
		return
	}
	m.reloadsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("script", scriptID)))
}
