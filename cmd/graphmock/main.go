package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hanpama/graphmock/internal/config"
	"github.com/hanpama/graphmock/internal/engine"
	"github.com/hanpama/graphmock/internal/eventbus"
	"github.com/hanpama/graphmock/internal/fixture"
	"github.com/hanpama/graphmock/internal/logging"
	"github.com/hanpama/graphmock/internal/otel"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/server"
)

const rootUsage = `graphmock: schema-aware GraphQL mock server and tools

USAGE:
  graphmock <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL mock server
  mock             Mock a single operation and print the response
  render           Validate a schema and print it as normalized SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                      YAML config file; flags override it
  -schema <file>                      GraphQL SDL file (required)
  -fixture <file>                     JSON or YAML fixture served until replaced
  -graphql.introspection <bool>       Enable GraphQL introspection (default: true)
  -mock.max-list-length N             Upper bound for page-size hints (default: 100)
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes N            Request body limit (default: 1048576)
  -server.cors <origin>               Allowed CORS origin. Repeatable
  -server.metadata-header <name>      Expose HTTP header to resolvers as metadata. Repeatable
  -log.level <level>                  debug, info, warn or error (default: info)
  -log.format <format>                text or json (default: text)
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: graphmock)
`

const mockUsage = `mock FLAGS:
  -schema <file>           GraphQL SDL file (required)
  -query <text>            Operation text; @file reads it from a file (required)
  -operation <name>        Operation to run when the document has several
  -variables <json>        Variables as a JSON object
  -fixture <file>          JSON or YAML fixture to overlay
  -config <file>           YAML config providing static resolvers
  -errors <bool>           Report errors in the response (default: true)
  -max-list-length N       Upper bound for page-size hints (default: 100)
`

const renderUsage = `render FLAGS:
  -schema <file>  GraphQL SDL file (required)
  -out <file>     Write SDL to file (default: stdout)
  (Validation always runs; exits non-zero on errors)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "graphmock:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(ctx, cmdArgs, stderr)
	case "mock":
		return cmdMock(ctx, cmdArgs, stdout, stderr)
	case "render":
		return cmdRender(cmdArgs, stdout, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "mock":
		fmt.Fprint(stdout, mockUsage)
	case "render":
		fmt.Fprint(stdout, renderUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// stringListFlag is a repeatable flag. The first use replaces any value
// that came from the config file.
type stringListFlag struct {
	list    *[]string
	touched bool
}

func (s *stringListFlag) String() string {
	if s.list == nil {
		return ""
	}
	return strings.Join(*s.list, ",")
}

func (s *stringListFlag) Set(v string) error {
	if !s.touched {
		*s.list = nil
		s.touched = true
	}
	*s.list = append(*s.list, v)
	return nil
}

func serveFlags(cfg *config.Config, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(configPath, "config", *configPath, "YAML config file")
	fs.StringVar(&cfg.Schema, "schema", cfg.Schema, "GraphQL SDL file")
	fs.StringVar(&cfg.Fixture, "fixture", cfg.Fixture, "Fixture file")
	fs.BoolVar(&cfg.Introspection, "graphql.introspection", cfg.Introspection, "Enable GraphQL introspection")
	fs.IntVar(&cfg.MaxListLength, "mock.max-list-length", cfg.MaxListLength, "Upper bound for page-size hints")
	fs.StringVar(&cfg.Listen, "server.addr", cfg.Listen, "HTTP listen address")
	fs.BoolVar(&cfg.Server.Pretty, "server.pretty", cfg.Server.Pretty, "Pretty-print JSON responses")
	fs.DurationVar((*time.Duration)(&cfg.Server.Timeout), "server.timeout", time.Duration(cfg.Server.Timeout), "Per-request timeout")
	fs.Int64Var(&cfg.Server.MaxBodyBytes, "server.max-body-bytes", cfg.Server.MaxBodyBytes, "Request body limit")
	fs.Var(&stringListFlag{list: &cfg.Server.CORS}, "server.cors", "Allowed CORS origin")
	fs.Var(&stringListFlag{list: &cfg.Server.ForwardHeaders}, "server.metadata-header", "Expose HTTP header as metadata")
	fs.StringVar(&cfg.Log.Level, "log.level", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.Format, "log.format", cfg.Log.Format, "Log format")
	fs.StringVar(&cfg.OTLP.Endpoint, "otel.endpoint", cfg.OTLP.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.OTLP.Service, "otel.service", cfg.OTLP.Service, "OpenTelemetry service name")
	return fs
}

// loadServeConfig parses args twice: once to find -config, then over the
// loaded file so that explicit flags win.
func loadServeConfig(args []string) (config.Config, error) {
	cfg := config.Default()
	configPath := ""
	if err := serveFlags(&cfg, &configPath).Parse(args); err != nil {
		return config.Config{}, err
	}
	if configPath == "" {
		return cfg, cfg.Validate()
	}
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := serveFlags(&fileCfg, &configPath).Parse(args); err != nil {
		return config.Config{}, err
	}
	return fileCfg, fileCfg.Validate()
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := loadServeConfig(args)
	if err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	if cfg.Schema == "" {
		fmt.Fprint(stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: stderr,
	})

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	shutdown, err := otel.Setup(ctx, cfg.OTLP.Endpoint, cfg.OTLP.Service, bus)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("GraphQL mock server listening", "addr", lis.Addr().String(), "schema", cfg.Schema)
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newHandler(cfg config.Config, logger *slog.Logger) (*server.Handler, error) {
	e, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	sopts := []server.Option{
		server.WithTimeout(time.Duration(cfg.Server.Timeout)),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithLogger(logger),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.CORS) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORS...))
	}
	if len(cfg.Server.ForwardHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.ForwardHeaders...))
	}
	if cfg.Fixture != "" {
		f, err := loadFixture(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		sopts = append(sopts, server.WithFixture(f))
	}
	return server.New(e, sopts...), nil
}

func newEngine(cfg config.Config, logger *slog.Logger) (*engine.Engine, error) {
	sdl, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.LoadSource(cfg.Schema, string(sdl))
	if err != nil {
		return nil, err
	}
	return engine.NewFromSchema(sch,
		engine.WithResolvers(cfg.BuildResolvers()),
		engine.WithIntrospection(cfg.Introspection),
		engine.WithMaxListLength(cfg.MaxListLength),
		engine.WithLogger(logger))
}

func loadFixture(path string) (*fixture.Fixture, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := fixture.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func cmdMock(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Default()
	configPath := ""
	query := ""
	operation := ""
	variables := ""
	mockErrors := true

	fs := flag.NewFlagSet("mock", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&cfg.Schema, "schema", "", "GraphQL SDL file")
	fs.StringVar(&query, "query", "", "Operation text or @file")
	fs.StringVar(&operation, "operation", "", "Operation name")
	fs.StringVar(&variables, "variables", "", "Variables JSON")
	fs.StringVar(&cfg.Fixture, "fixture", "", "Fixture file")
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.BoolVar(&mockErrors, "errors", mockErrors, "Report errors")
	fs.IntVar(&cfg.MaxListLength, "max-list-length", cfg.MaxListLength, "Upper bound for page-size hints")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, mockUsage)
		return err
	}
	if cfg.Schema == "" || query == "" {
		fmt.Fprint(stderr, mockUsage)
		return fmt.Errorf("-schema and -query are required")
	}
	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.Resolvers = fileCfg.Resolvers
		cfg.Introspection = fileCfg.Introspection
	}
	if strings.HasPrefix(query, "@") {
		src, err := os.ReadFile(query[1:])
		if err != nil {
			return fmt.Errorf("read query: %w", err)
		}
		query = string(src)
	}

	req := engine.Request{Query: query, OperationName: operation, MockErrors: mockErrors}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &req.Variables); err != nil {
			return fmt.Errorf("invalid -variables JSON: %w", err)
		}
	}
	if cfg.Fixture != "" {
		f, err := loadFixture(cfg.Fixture)
		if err != nil {
			return err
		}
		req.Fixture = f
	}

	e, err := newEngine(cfg, logging.Nop())
	if err != nil {
		return err
	}
	res, err := e.Mock(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func cmdRender(args []string, stdout, stderr io.Writer) error {
	schemaPath := ""
	outFile := ""
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "GraphQL SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, renderUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(stderr, renderUsage)
		return fmt.Errorf("-schema is required")
	}

	sdl, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.LoadSource(schemaPath, string(sdl))
	if err != nil {
		return err
	}
	out := schema.Render(sch)
	if outFile == "" {
		_, err := io.WriteString(stdout, out)
		return err
	}
	return os.WriteFile(outFile, []byte(out), 0o644)
}
