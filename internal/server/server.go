// Package server exposes an engine over GraphQL-over-HTTP, plus a small
// admin endpoint for the server-held fixture.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/hanpama/graphmock/internal/engine"
	"github.com/hanpama/graphmock/internal/eventbus"
	"github.com/hanpama/graphmock/internal/events"
	"github.com/hanpama/graphmock/internal/fixture"
	"github.com/hanpama/graphmock/internal/logging"
	"github.com/hanpama/graphmock/internal/reqid"
	"github.com/hanpama/graphmock/internal/response"
)

// Handler is an http.Handler serving /graphql and /fixture.
type Handler struct {
	engine *engine.Engine
	opt    Options
	mux    *http.ServeMux

	mu      sync.RWMutex
	fixture *fixture.Fixture
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers exposed to resolvers as incoming
	// gRPC metadata. Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// Fixture is the server-held fixture at startup.
	Fixture *fixture.Fixture

	Logger *slog.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
func WithFixture(f *fixture.Fixture) Option { return func(o *Options) { o.Fixture = f } }
func WithLogger(l *slog.Logger) Option      { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler mocking requests with e.
func New(e *engine.Engine, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = logging.Nop()
	}
	h := &Handler{engine: e, opt: op, fixture: op.Fixture, mux: http.NewServeMux()}
	h.mux.HandleFunc("/graphql", h.serveGraphQL)
	h.mux.HandleFunc("/fixture", h.serveFixture)
	return h
}

// Fixture returns the server-held fixture, or nil.
func (h *Handler) Fixture() *fixture.Fixture {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fixture
}

// SetFixture replaces the server-held fixture; nil clears it.
func (h *Handler) SetFixture(f *fixture.Fixture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fixture = f
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	r = r.WithContext(ctx)

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		elapsed := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, RequestID: rid, Status: sw.status, Bytes: sw.bytes, Duration: elapsed})
		h.opt.Logger.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"request_id", rid,
			"duration", elapsed)
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(sw, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		sw.WriteHeader(http.StatusNoContent)
		return
	}
	h.mux.ServeHTTP(sw, r)
}

func (h *Handler) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResult("method not allowed"), h.opt.Pretty)
		return
	}

	req, batch, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResult(err.Error()), h.opt.Pretty)
		return
	}

	ctx := withMetadata(r.Context(), r.Header, h.opt.MetadataHeaders)
	if batch != nil {
		out := make([]*response.Result, len(batch))
		for i := range batch {
			out[i] = h.mockOne(ctx, batch[i])
		}
		writeJSON(w, http.StatusOK, out, h.opt.Pretty)
		return
	}
	writeJSON(w, http.StatusOK, h.mockOne(ctx, req), h.opt.Pretty)
}

// withMetadata exposes the configured headers, and the request id, as
// incoming gRPC metadata.
func withMetadata(ctx context.Context, header http.Header, forward []string) context.Context {
	md := metadata.MD{}
	if len(forward) > 0 {
		allowed := make(map[string]struct{}, len(forward))
		for _, hdr := range forward {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	if rid, ok := reqid.FromContext(ctx); ok {
		md.Set("graphql-request-id", rid)
	}
	return metadata.NewIncomingContext(ctx, md)
}

func (h *Handler) mockOne(ctx context.Context, req GraphQLRequest) *response.Result {
	fx := h.Fixture()
	if len(req.Extensions.Fixture) > 0 && string(req.Extensions.Fixture) != "null" {
		parsed, err := fixture.Parse(req.Extensions.Fixture)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid fixture: %v", err))
		}
		fx = parsed
	}
	mockErrors := true
	if req.Extensions.MockErrors != nil {
		mockErrors = *req.Extensions.MockErrors
	}

	res, err := h.engine.Mock(ctx, engine.Request{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		Fixture:       fx,
		MockErrors:    mockErrors,
	})
	var syntaxErr *engine.DocumentSyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		return &response.Result{Errors: []*response.Error{syntaxErr.Response()}}
	case err != nil:
		return errorResult(err.Error())
	}
	return res
}

// serveFixture shows (GET), replaces (PUT, POST) or clears (DELETE) the
// server-held fixture.
func (h *Handler) serveFixture(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Fixture().Map(), h.opt.Pretty)
	case http.MethodPut, http.MethodPost:
		body, err := readBody(r, h.opt.MaxBodyBytes)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, status, errorResult(err.Error()), h.opt.Pretty)
			return
		}
		f, err := fixture.Parse(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResult(err.Error()), h.opt.Pretty)
			return
		}
		h.SetFixture(f)
		writeJSON(w, http.StatusOK, f.Map(), h.opt.Pretty)
	case http.MethodDelete:
		h.SetFixture(nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResult("method not allowed"), h.opt.Pretty)
	}
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    Extensions     `json:"extensions,omitempty"`
}

// Extensions carries the mock controls of a request.
type Extensions struct {
	// Fixture is a {data, errors} document applied to this request only.
	Fixture json.RawMessage `json:"fixture,omitempty"`
	// MockErrors defaults to true.
	MockErrors *bool `json:"mockErrors,omitempty"`
}

var (
	errBodyTooLarge = errors.New("body too large")
	errMissingQuery = errors.New("missing 'query'")
)

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		params := r.URL.Query()
		req := GraphQLRequest{Query: params.Get("query"), OperationName: params.Get("operationName")}
		if req.Query == "" {
			return GraphQLRequest{}, nil, errMissingQuery
		}
		if v := params.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return GraphQLRequest{}, nil, errors.New("invalid 'variables' JSON")
			}
		}
		if v := params.Get("extensions"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Extensions); err != nil {
				return GraphQLRequest{}, nil, errors.New("invalid 'extensions' JSON")
			}
		}
		return req, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, errors.New("unsupported Content-Type")
	}
	body, err := readBody(r, maxBody)
	if err != nil {
		return GraphQLRequest{}, nil, err
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, errors.New("invalid JSON")
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, errors.New("empty batch")
		}
		return GraphQLRequest{}, arr, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, errors.New("invalid JSON")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, errMissingQuery
	}
	return req, nil, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, errBodyTooLarge
	}
	return body, nil
}

// ------------------ Response formatting ------------------

func errorResult(message string) *response.Result {
	return &response.Result{Errors: []*response.Error{{Message: message}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// statusWriter records the status and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
