// Package engine ties the schema, validator, synthesizer and fixture
// merger together behind a single Mock call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanpama/graphmock/internal/eventbus"
	"github.com/hanpama/graphmock/internal/events"
	"github.com/hanpama/graphmock/internal/fixture"
	"github.com/hanpama/graphmock/internal/introspection"
	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/logging"
	"github.com/hanpama/graphmock/internal/mock"
	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

// Engine mocks operations against one schema.
//
// Mock may be called concurrently. The standing fixture is not
// synchronized: SetFixture and ClearFixture must not race with Mock or
// with each other. Callers needing isolation pass Request.Fixture instead.
type Engine struct {
	schema *schema.Schema
	// exec is the schema operations are validated and synthesized against;
	// it carries the introspection types when introspection is enabled.
	exec    *schema.Schema
	synth   *mock.Synthesizer
	logger  *slog.Logger
	fixture *fixture.Fixture
}

type options struct {
	runtime       mock.Runtime
	introspection bool
	logger        *slog.Logger
	synth         []mock.Option
}

type Option func(*options)

// WithResolvers installs a resolver registry as the runtime.
func WithResolvers(r *mock.Resolvers) Option {
	return func(o *options) { o.runtime = r }
}

// WithRuntime installs rt as the runtime consulted before synthesis.
func WithRuntime(rt mock.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// WithIntrospection enables or disables __schema and __type. It is
// enabled by default.
func WithIntrospection(enabled bool) Option {
	return func(o *options) { o.introspection = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxListLength caps lists sized by page-size arguments.
func WithMaxListLength(n int) Option {
	return func(o *options) { o.synth = append(o.synth, mock.WithMaxListLength(n)) }
}

// WithScalar overrides the stand-in values of a scalar type.
func WithScalar(name string, fn mock.ScalarFunc) Option {
	return func(o *options) { o.synth = append(o.synth, mock.WithScalar(name, fn)) }
}

// New loads sdl and builds an engine for it. Schema problems are returned
// as *schema.ParseError.
func New(sdl string, opts ...Option) (*Engine, error) {
	sch, err := schema.Load(sdl)
	if err != nil {
		return nil, err
	}
	return NewFromSchema(sch, opts...)
}

// NewFromSchema builds an engine for an already loaded schema.
func NewFromSchema(sch *schema.Schema, opts ...Option) (*Engine, error) {
	o := options{introspection: true, logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	exec, rt := sch, o.runtime
	if o.introspection {
		w, err := introspection.Wrap(o.runtime, sch)
		if err != nil {
			return nil, err
		}
		exec, rt = w.Schema, w.Runtime
	}
	synthOpts := append([]mock.Option{}, o.synth...)
	if rt != nil {
		synthOpts = append(synthOpts, mock.WithRuntime(rt))
	}

	return &Engine{
		schema: sch,
		exec:   exec,
		synth:  mock.NewSynthesizer(exec, synthOpts...),
		logger: o.logger,
	}, nil
}

// Schema returns the loaded schema, without introspection types.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Request is one mock invocation.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Fixture overrides the standing fixture for this call.
	Fixture *fixture.Fixture
	// MockErrors reports errors in the result. When false Errors is empty.
	MockErrors bool
}

// DocumentSyntaxError reports a query that is not parseable GraphQL.
type DocumentSyntaxError struct {
	Err *language.Error
}

func (e *DocumentSyntaxError) Error() string {
	return fmt.Sprintf("document syntax error: %s", e.Err.Error())
}

func (e *DocumentSyntaxError) Unwrap() error { return e.Err }

// Response renders the syntax error as a GraphQL error entry.
func (e *DocumentSyntaxError) Response() *response.Error {
	out := &response.Error{Message: e.Err.Message}
	for _, loc := range e.Err.Locations {
		out.Locations = append(out.Locations, response.Location{Line: loc.Line, Column: loc.Column})
	}
	return out
}

// Mock validates the request's operation, synthesizes its data and lays
// the effective fixture over it. The only error returned is a
// *DocumentSyntaxError; everything else is reported in the result.
func (e *Engine) Mock(ctx context.Context, req Request) (*response.Result, error) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var syntaxErr *language.Error
		if !errors.As(err, &syntaxErr) {
			syntaxErr = &language.Error{Message: err.Error()}
		}
		e.logger.DebugContext(ctx, "mock rejected", "operation", req.OperationName, "error", syntaxErr.Message)
		return nil, &DocumentSyntaxError{Err: syntaxErr}
	}

	fx := req.Fixture
	if fx == nil {
		fx = e.fixture
	}

	start := time.Now()
	eventbus.Publish(ctx, events.MockStart{Query: req.Query, OperationName: req.OperationName, Fixture: fx != nil})

	var data *response.Object
	op, errs := validator.Validate(e.exec, doc, req.OperationName, req.Variables)
	opType := ""
	if op != nil {
		opType = string(op.Kind)
		var synthErrs []*response.Error
		data, synthErrs = e.synth.Synthesize(ctx, op)
		errs = append(errs, synthErrs...)
	}
	reported := len(errs)
	data, errs = fixture.Merge(data, errs, fx, req.MockErrors)

	eventbus.Publish(ctx, events.MockFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Fixture:       fx != nil,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	e.logger.DebugContext(ctx, "mock",
		"operation", req.OperationName,
		"type", opType,
		"fixture", fx != nil,
		"errors", reported,
		"duration", time.Since(start))

	return &response.Result{Data: data, Errors: errs}, nil
}

// SetFixture installs the standing fixture used when a request has none.
func (e *Engine) SetFixture(f *fixture.Fixture) { e.fixture = f }

// ClearFixture removes the standing fixture. It is idempotent.
func (e *Engine) ClearFixture() { e.fixture = nil }

// Fixture returns the standing fixture, or nil.
func (e *Engine) Fixture() *fixture.Fixture { return e.fixture }
