// Package traces wires OpenTelemetry spans around the intake service's
// outbound calls: the risk scorer and the durable tables.
package traces

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ServiceName = "transaction-risk-intake"
	tracerName  = "github.com/sheikh-saqib/transaction-risk-intake"
)

// Init exports spans to endpoint over OTLP/gRPC, tagged with the
// deployment environment. With no endpoint spans are dropped.
func Init(ctx context.Context, endpoint, env string, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		logger.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.DeploymentEnvironment(env),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", endpoint, "env", env)
	return tp.Shutdown, nil
}

// Start opens a span named name. The returned func ends it, marking the
// span failed when given a non-nil error.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(attrs...)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Transaction tags a span with the amount and merchant being scored.
func Transaction(amount decimal.Decimal, merchant string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("transaction.amount", amount.String()),
		attribute.String("transaction.merchant", merchant),
	}
}

func Table(name string) attribute.KeyValue {
	return attribute.String("store.table", name)
}
