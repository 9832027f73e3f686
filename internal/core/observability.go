package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"inventario/pkg/domain"
	"inventario/pkg/logger"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc uses time.Now.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

// Logger receives one entry per service operation. kv holds alternating
// key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
}

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// SaleObserver is implemented by recorders that also track sold amounts.
type SaleObserver interface {
	ObserveSale(ctx context.Context, receipt domain.Receipt)
}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

// AuditStatus is the outcome recorded for a mutating operation.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one mutating operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// ZerologLogger writes service entries through pkg/logger, tagging them with
// the active trace and span ids.
type ZerologLogger struct{}

// Debug implements Logger.
func (ZerologLogger) Debug(ctx context.Context, msg string, kv ...any) {
	logger.Debug(ctx).Fields(kv).Msg(msg)
}

// Info implements Logger.
func (ZerologLogger) Info(ctx context.Context, msg string, kv ...any) {
	logger.Info(ctx).Fields(kv).Msg(msg)
}

// Warn implements Logger.
func (ZerologLogger) Warn(ctx context.Context, msg string, kv ...any) {
	logger.Warn(ctx).Fields(kv).Msg(msg)
}

// Error implements Logger.
func (ZerologLogger) Error(ctx context.Context, msg string, kv ...any) {
	logger.Error(ctx).Fields(kv).Msg(msg)
}

// PrometheusMetrics records operation counts, latencies and sale volume.
type PrometheusMetrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	saleAmount prometheus.Counter
	saleUnits  prometheus.Counter
	sales      prometheus.Counter
}

// NewPrometheusMetrics registers the collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventario",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inventario",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		saleAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventario",
			Name:      "sales_amount_total",
			Help:      "Sum of committed receipt totals.",
		}),
		saleUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventario",
			Name:      "sales_units_total",
			Help:      "Units sold across committed receipts.",
		}),
		sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventario",
			Name:      "sales_total",
			Help:      "Committed receipts.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.durations, m.saleAmount, m.saleUnits, m.sales} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveSale implements SaleObserver.
func (m *PrometheusMetrics) ObserveSale(_ context.Context, receipt domain.Receipt) {
	amount, _ := receipt.GrandTotal.Float64()
	m.sales.Inc()
	m.saleAmount.Add(amount)
	m.saleUnits.Add(float64(receipt.Units()))
}

// OTelTracer opens OpenTelemetry spans for service operations.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer builds a tracer from tp.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer("inventario/internal/core")}
}

// Start implements Tracer.
func (t *OTelTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithAttributes(attribute.String("inventario.operation", operation)))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// LogAuditRecorder writes audit entries to a Logger at info level.
type LogAuditRecorder struct {
	Logger Logger
}

// Record implements AuditRecorder.
func (r LogAuditRecorder) Record(ctx context.Context, e AuditEntry) {
	l := r.Logger
	if l == nil {
		l = ZerologLogger{}
	}
	kv := []any{
		"operation", e.Operation,
		"entity", string(e.Entity),
		"action", string(e.Action),
		"entity_id", e.EntityID,
		"status", string(e.Status),
		"duration", e.Duration,
		"at", e.Timestamp,
	}
	if e.Error != "" {
		kv = append(kv, "error", e.Error)
	}
	l.Info(ctx, "audit", kv...)
}
