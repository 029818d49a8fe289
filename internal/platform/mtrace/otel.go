// Package mtrace provides the span-error recording helper domain services
// use at every storage/network boundary, adapted from
// common/mopentelemetry.HandleSpanError in the teacher.
package mtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer name shared by every domain service span.
const tracerName = "github.com/atlaspay/aggregator-core"

// Start begins a span named name under the shared tracer.
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// HandleSpanError records err on span and marks it failed, mirroring the
// teacher's mopentelemetry.HandleSpanError exactly.
func HandleSpanError(span *trace.Span, message string, err error) {
	(*span).SetStatus(codes.Error, message+": "+err.Error())
	(*span).RecordError(err)
}
