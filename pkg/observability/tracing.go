// Package observability provides distributed tracing for the transcript
// ingestion pipeline.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for ingestion operations.
	TracerName = "coachsync.ingest"
)

// Span attribute keys
const (
	AttrExternalID  = "external_id"
	AttrCredential  = "credential"
	AttrDataItemID  = "data_item_id"
	AttrSessionType = "session_type"
	AttrMatchedVia  = "matched_via"
	AttrChunkCount  = "chunk_count"
	AttrDurationMs  = "duration_ms"
	AttrErrorType   = "error_type"
	AttrRetryable   = "retryable"
)

// Span names
const (
	SpanProcessTranscript = "ingest.process_transcript"
	SpanFetchTranscript   = "ingest.fetch_transcript"
	SpanResolveIdentity   = "ingest.resolve_identity"
	SpanPersistItem       = "ingest.persist_item"
	SpanEmbedChunk        = "ingest.embed_chunk"
	SpanSyncRun           = "ingest.sync_run"
)

// Tracer provides distributed tracing for ingestion operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new ingestion tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartTranscriptSpan starts a root span for processing one transcript.
func (t *Tracer) StartTranscriptSpan(ctx context.Context, externalID, credential string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, SpanProcessTranscript,
		trace.WithAttributes(
			attribute.String(AttrExternalID, externalID),
		),
	)
	if credential != "" {
		span.SetAttributes(attribute.String(AttrCredential, credential))
	}
	return ctx, span
}

// StartRunSpan starts a root span for a full multi-credential sync run.
func (t *Tracer) StartRunSpan(ctx context.Context, credentials int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanSyncRun,
		trace.WithAttributes(
			attribute.Int("credentials", credentials),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

// SpanHelper provides convenient methods for working with the current span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetResolution sets identity-resolution attributes on the span.
func (h *SpanHelper) SetResolution(matchedVia string) {
	h.span.SetAttributes(attribute.String(AttrMatchedVia, matchedVia))
}

// SetPersistence sets persistence attributes on the span.
func (h *SpanHelper) SetPersistence(dataItemID, sessionType string, chunks int) {
	h.span.SetAttributes(
		attribute.String(AttrDataItemID, dataItemID),
		attribute.String(AttrSessionType, sessionType),
		attribute.Int(AttrChunkCount, chunks),
	)
}

// SetDuration sets the duration attribute.
func (h *SpanHelper) SetDuration(durationMs int64) {
	h.span.SetAttributes(attribute.Int64(AttrDurationMs, durationMs))
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, errorType string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorType, errorType),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasSpanID() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
