package telemetry_test

import (
	"context"
	"testing"

	"github.com/freightflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "ledger.register_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, "tenant-a"),
		telemetry.WithAttribute(telemetry.SpanAttrRegistrationID, "reg-1"))
	require.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.register_payment", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "tenant-a", attrs[telemetry.SpanAttrTenantID].AsString())
	assert.Equal(t, "reg-1", attrs[telemetry.SpanAttrRegistrationID].AsString())
}

func TestStartSpanKind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "docstore.publish",
		telemetry.WithSpanKind(trace.SpanKindProducer))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindProducer, spans[0].SpanKind())
}

func TestStartSpanNesting(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "ledger.reconcile")
	_, child := telemetry.StartSpan(ctx, "docstore.load")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestSetAttribute(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.update_payment")
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, "1500.00")
	telemetry.SetAttribute(span, "entries", 3)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, "1500.00", attrs[telemetry.SpanAttrAmount].AsString())
	assert.EqualValues(t, 3, attrs["entries"].AsInt64())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.register_payment")
	telemetry.RecordError(span, assert.AnError)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)

	// nil error must not flip the status
	_, clean := telemetry.StartSpan(context.Background(), "ledger.reconcile")
	telemetry.RecordError(clean, nil)
	clean.End()
	assert.Equal(t, codes.Unset, sr.Ended()[1].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.reconcile")
	telemetry.AddEvent(span, "backfill_started",
		telemetry.SpanAttrRegistrationID, "reg-7",
		"count", 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "backfill_started", events[0].Name)

	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, "reg-7", attrs[telemetry.SpanAttrRegistrationID].AsString())
	assert.EqualValues(t, 2, attrs["count"].AsInt64())
}
