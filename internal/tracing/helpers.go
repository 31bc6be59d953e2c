package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Postgres tables read while building a feed page.
const (
	TableCreatorProfiles = "creator_profiles"
	TableMediaAssets     = "media_assets"
	TableBookings        = "bookings"
	TableCreatorBlocks   = "creator_blocks"
)

const (
	feedScope = "creatorfeed/feed"
	dbScope   = "creatorfeed/db"
)

// EndFunc ends a span. A non-nil err marks the span failed, except a
// cancelled context, which only means the viewer went away.
type EndFunc func(err error)

// StartQuery starts a client span "SELECT <table>" for one repository read.
//
//	ctx, end := tracing.StartQuery(ctx, tracing.TableMediaAssets)
//	defer func() { end(err) }()
func StartQuery(ctx context.Context, table string, attrs ...attribute.KeyValue) (context.Context, EndFunc) {
	return startDB(ctx, "SELECT", table, attrs)
}

// StartPing starts a client span for a database readiness check.
func StartPing(ctx context.Context) (context.Context, EndFunc) {
	return startDB(ctx, "PING", "", nil)
}

func startDB(ctx context.Context, op, table string, attrs []attribute.KeyValue) (context.Context, EndFunc) {
	name := op
	all := []attribute.KeyValue{
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
	}
	if table != "" {
		name += " " + table
		all = append(all, attribute.String("db.sql.table", table))
	}
	all = append(all, attrs...)

	ctx, span := otel.Tracer(dbScope).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)
	return ctx, ender(span)
}

// StartStage starts an internal span "feed.<stage>" for one step of the feed
// pipeline, such as "compute".
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, EndFunc) {
	ctx, span := otel.Tracer(feedScope).Start(ctx, "feed."+stage, trace.WithAttributes(attrs...))
	return ctx, ender(span)
}

// Annotate adds attrs to the span in ctx. Without a span it does nothing.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func ender(span trace.Span) EndFunc {
	return func(err error) {
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			span.AddEvent("canceled")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
