// Package tracer is the tracing seam of the benefit query flow. Callers
// depend on the Tracer interface; OTelTracer backs it in production and
// NoopTracer in tests.
package tracer

import (
	"context"

	"saldo/internal/platform/privacy"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// HashDocument fingerprints a taxpayer document for span attributes.
func HashDocument(document string) string {
	return privacy.HashDocument(document)
}

// Span names.
const (
	SpanSubmitQuery   = "benefit.submit_query"
	SpanLatestQuery   = "benefit.latest_query"
	SpanCreditSummary = "benefit.credit_summary"
	SpanExternalFetch = "benefit.external.fetch"
	SpanExternalCall  = "benefit.external.call"
)

// Attribute keys.
const (
	AttrDocumentHash = "document_hash"
	AttrBenefit      = "benefit"
	AttrLogin        = "login"
	AttrState        = "state"
	AttrOutcome      = "outcome"
	AttrCacheHit     = "cache.hit"
	AttrAttempt      = "attempt"
	AttrHTTPStatus   = "http.status_code"
	AttrErrorKind    = "error.category"
)

// Event names.
const (
	EventStateEntered = "state.entered"
	EventRetry        = "external.retry"
	EventAuditEmitted = "audit.emitted"
)
