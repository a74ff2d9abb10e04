// Package otel turns event bus traffic into OpenTelemetry spans.
package otel

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/graphmock/internal/eventbus"
	"github.com/hanpama/graphmock/internal/events"
	"github.com/hanpama/graphmock/internal/reqid"
)

// Setup configures an OTLP gRPC exporter and attaches span subscribers to
// bus. If endpoint is empty, no telemetry is configured. The returned
// function detaches the subscribers and flushes pending spans.
func Setup(ctx context.Context, endpoint, service string, bus *eventbus.Bus) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := Attach(bus, tp.Tracer("graphmock"))
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach subscribes span producers for HTTP and mock events on bus using
// tracer. Spans are correlated through the request id in the context.
func Attach(bus *eventbus.Bus, tracer trace.Tracer) (detach func()) {
	s := &subscriber{tracer: tracer}
	unsubs := s.register(bus)
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	mockSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register(bus *eventbus.Bus) []func() {
	return []func(){
		eventbus.On(bus, func(ctx context.Context, e events.HTTPStart) {
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("http.request_id", e.RequestID),
			)
			s.httpSpans.Store(e.RequestID, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.HTTPFinish) {
			v, ok := s.httpSpans.LoadAndDelete(e.RequestID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				semconv.HTTPStatusCodeKey.Int(e.Status),
				attribute.Int("http.response_size", e.Bytes),
			)
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			span.End()
		}),

		eventbus.On(bus, func(ctx context.Context, e events.MockStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.httpSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "graphql.mock")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.Bool("graphmock.fixture", e.Fixture),
			)
			s.mockSpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.MockFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.mockSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.Int("graphql.error_count", len(e.Errors)),
			)
			for _, err := range e.Errors {
				span.RecordError(errors.New(err.Message))
			}
			span.End()
		}),
	}
}
