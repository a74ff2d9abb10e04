// Package config loads the graphmock YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/graphmock/internal/mock"
)

// Config is the file-level configuration. Command-line flags override it.
type Config struct {
	// Schema is the SDL file to load.
	Schema string `yaml:"schema"`
	// Fixture is an optional JSON or YAML fixture installed at startup.
	Fixture       string `yaml:"fixture"`
	Listen        string `yaml:"listen"`
	Introspection bool   `yaml:"introspection"`
	MaxListLength int    `yaml:"maxListLength"`

	Server    Server                    `yaml:"server"`
	Log       Log                       `yaml:"log"`
	OTLP      OTLP                      `yaml:"otlp"`
	Resolvers map[string]StaticResolver `yaml:"resolvers"`
}

type Server struct {
	Timeout        Duration `yaml:"timeout"`
	Pretty         bool     `yaml:"pretty"`
	MaxBodyBytes   int64    `yaml:"maxBodyBytes"`
	CORS           []string `yaml:"cors"`
	ForwardHeaders []string `yaml:"forwardHeaders"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OTLP configures trace export. An empty Endpoint disables it.
type OTLP struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// StaticResolver answers one "Type.field" with a fixed response or error.
type StaticResolver struct {
	Response any    `yaml:"response"`
	Error    string `yaml:"error"`
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:        ":8080",
		Introspection: true,
		MaxListLength: mock.DefaultMaxListLength,
		Server: Server{
			Timeout:      Duration(10 * time.Second),
			MaxBodyBytes: 1 << 20,
		},
		Log:  Log{Level: "info", Format: "text"},
		OTLP: OTLP{Service: "graphmock"},
	}
}

// Load reads path over Default. Unknown keys are rejected. Relative schema
// and fixture paths are resolved against the directory of path.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(src)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.Schema = resolvePath(dir, cfg.Schema)
	cfg.Fixture = resolvePath(dir, cfg.Fixture)
	return cfg, nil
}

// Parse decodes a YAML document over Default.
func Parse(src []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that YAML decoding cannot.
func (c Config) Validate() error {
	var errs []error
	for key, r := range c.Resolvers {
		if _, _, ok := splitCoordinate(key); !ok {
			errs = append(errs, fmt.Errorf("resolver %q: key must be Type.field", key))
		}
		if r.Error != "" && r.Response != nil {
			errs = append(errs, fmt.Errorf("resolver %q: response and error are exclusive", key))
		}
	}
	if c.MaxListLength < 0 {
		errs = append(errs, fmt.Errorf("maxListLength must not be negative"))
	}
	return errors.Join(errs...)
}

// BuildResolvers turns the static resolvers into a registry.
func (c Config) BuildResolvers() *mock.Resolvers {
	r := mock.NewResolvers(nil)
	for key, sr := range c.Resolvers {
		typ, field, _ := splitCoordinate(key)
		if sr.Error != "" {
			r.Set(typ, field, mock.NewErrorResolver(errors.New(sr.Error)))
			continue
		}
		r.Set(typ, field, mock.NewValueResolver(sr.Response))
	}
	return r
}

func splitCoordinate(key string) (typ, field string, ok bool) {
	typ, field, ok = strings.Cut(key, ".")
	return typ, field, ok && typ != "" && field != "" && !strings.Contains(field, ".")
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
