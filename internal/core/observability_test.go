package core

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"inventario/internal/infra/persistence/memory"
	"inventario/pkg/domain"
	"inventario/pkg/logger"
)

func TestPrometheusMetricsThroughService(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc := NewService(memory.NewStore(sampleInventory()), WithMetricsRecorder(metrics))
	ctx := context.Background()

	if _, err := svc.Sell(ctx, domain.NewCart(domain.CartLine{ProductID: 1, Quantity: 2}, domain.CartLine{ProductID: 2, Quantity: 1})); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if _, err := svc.Sell(ctx, domain.NewCart(domain.CartLine{ProductID: 3, Quantity: 1})); err == nil {
		t.Fatalf("expected out of stock sale to fail")
	}

	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("sell", "success")); got != 1 {
		t.Fatalf("expected 1 successful sell, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("sell", "error")); got != 1 {
		t.Fatalf("expected 1 failed sell, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.saleUnits); got != 3 {
		t.Fatalf("expected 3 units, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.saleAmount); got != 400 {
		t.Fatalf("expected amount 400, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.durations); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
}

func TestPrometheusMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetrics(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPrometheusMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := NewService(memory.NewStore(sampleInventory()), WithTracer(NewOTelTracer(tp)))
	ctx := context.Background()
	if _, err := svc.FindProduct(ctx, 1); err != nil {
		t.Fatalf("find: %v", err)
	}
	if _, err := svc.FindProduct(ctx, 99); err == nil {
		t.Fatalf("expected not found")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "find_product" || spans[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span: %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Fatalf("expected failed span with error event, got %v", spans[1].Status())
	}
}

func TestZerologLoggerCarriesTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Logger
	logger.InitWithWriter(&buf, "inventario-test", false)
	logger.SetLevel("debug")
	t.Cleanup(func() {
		logger.Logger = prev
		logger.SetLevel("info")
	})

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := NewService(memory.NewStore(sampleInventory()),
		WithTracer(NewOTelTracer(tp)),
		WithLogger(ZerologLogger{}),
	)
	if _, err := svc.ListProducts(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["operation"] != "list_products" || entry["level"] != "debug" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["trace_id"] == nil || entry["trace_id"] != sr.Ended()[0].SpanContext().TraceID().String() {
		t.Fatalf("expected trace id in log entry, got %v", entry)
	}
}

func TestLogAuditRecorder(t *testing.T) {
	logs := &captureLogger{}
	rec := LogAuditRecorder{Logger: logs}
	rec.Record(context.Background(), AuditEntry{
		Operation: "add_product",
		Entity:    domain.EntityProduct,
		Action:    domain.ActionCreate,
		EntityID:  "1",
		Status:    AuditStatusError,
		Error:     "boom",
		Duration:  time.Millisecond,
		Timestamp: saleDay,
	})
	if len(logs.entries) != 1 || logs.entries[0].level != "info" || logs.entries[0].msg != "audit" {
		t.Fatalf("unexpected audit log: %+v", logs.entries)
	}
	fields := kvMap(logs.entries[0].kv)
	if fields["status"] != "error" || fields["error"] != "boom" || fields["entity"] != "product" {
		t.Fatalf("unexpected audit fields: %v", fields)
	}
}

func kvMap(kv []any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}
