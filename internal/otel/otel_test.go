package otel

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/graphmock/internal/eventbus"
	"github.com/hanpama/graphmock/internal/events"
	"github.com/hanpama/graphmock/internal/reqid"
	"github.com/hanpama/graphmock/internal/response"
)

func TestAttach(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	detach := Attach(bus, tp.Tracer("test"))

	ctx, rid := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Emit(ctx, bus, events.HTTPStart{Request: req, RequestID: rid})
	eventbus.Emit(ctx, bus, events.MockStart{OperationName: "Q"})
	eventbus.Emit(ctx, bus, events.MockFinish{
		OperationName: "Q",
		OperationType: "query",
		Errors:        []*response.Error{{Message: "boom"}},
		Duration:      time.Millisecond,
	})
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, RequestID: rid, Status: 200})

	ended := rec.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, "graphql.mock", ended[0].Name())
	require.Equal(t, "http.request", ended[1].Name())
	require.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	require.Len(t, ended[0].Events(), 1)

	detach()
	eventbus.Emit(ctx, bus, events.MockStart{})
	require.Len(t, rec.Started(), 2)
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "graphmock", eventbus.New())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
