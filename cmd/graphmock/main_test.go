package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphmock/internal/logging"
)

const testSDL = `
type Query {
  license(key: String!): License
  licenses: [License]!
}

type License {
  key: String!
  name: String!
  featured: Boolean!
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestHelp(t *testing.T) {
	out, _, err := runCmd(t, "help")
	require.NoError(t, err)
	require.Contains(t, out, "USAGE:")
	require.Contains(t, out, "serve")

	out, _, err = runCmd(t, "help", "mock")
	require.NoError(t, err)
	require.Contains(t, out, "-query <text>")

	_, _, err = runCmd(t, "help", "nope")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runCmd(t, "frobnicate")
	require.EqualError(t, err, `unknown command "frobnicate"`)
	require.Contains(t, stderr, "COMMANDS:")

	_, _, err = runCmd(t)
	require.EqualError(t, err, "missing command")
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)

	out, _, err := runCmd(t, "render", "-schema", schemaPath)
	require.NoError(t, err)
	require.Contains(t, out, "type License {")
	require.Contains(t, out, "license(key: String!): License")

	outPath := filepath.Join(dir, "out.graphql")
	_, _, err = runCmd(t, "render", "-schema", schemaPath, "-out", outPath)
	require.NoError(t, err)
	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, out, string(written))

	bad := writeFile(t, dir, "bad.graphql", "type Query { a: Missing }")
	_, _, err = runCmd(t, "render", "-schema", bad)
	require.Error(t, err)

	_, stderr, err := runCmd(t, "render")
	require.EqualError(t, err, "-schema is required")
	require.Contains(t, stderr, "render FLAGS:")
}

func TestMock(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)

	out, _, err := runCmd(t, "mock", "-schema", schemaPath, "-query", `{ license(key: "mit") { key name } }`)
	require.NoError(t, err)

	var res struct {
		Data struct {
			License struct {
				Key  string `json:"key"`
				Name string `json:"name"`
			} `json:"license"`
		} `json:"data"`
		Errors []json.RawMessage `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Data.License.Key)
	require.NotEmpty(t, res.Data.License.Name)
	require.Empty(t, res.Errors)

	again, _, err := runCmd(t, "mock", "-schema", schemaPath, "-query", `{ license(key: "mit") { key name } }`)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestMockWithFixtureAndQueryFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)
	queryPath := writeFile(t, dir, "query.graphql", `
query One($key: String!) { license(key: $key) { key name } }
query Two { licenses { key } }
`)
	fixturePath := writeFile(t, dir, "fixture.yaml", `
data:
  license:
    name: MIT License
`)

	out, _, err := runCmd(t, "mock",
		"-schema", schemaPath,
		"-query", "@"+queryPath,
		"-operation", "One",
		"-variables", `{"key":"mit"}`,
		"-fixture", fixturePath)
	require.NoError(t, err)
	require.Contains(t, out, `"name": "MIT License"`)
	require.NotContains(t, out, `"licenses"`)
}

func TestMockErrors(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)

	out, _, err := runCmd(t, "mock", "-schema", schemaPath, "-query", `{ licenses { invalid } }`)
	require.NoError(t, err)
	require.Contains(t, out, `Cannot query field \"invalid\" on type \"License\".`)

	out, _, err = runCmd(t, "mock", "-schema", schemaPath, "-query", `{ licenses { invalid } }`, "-errors=false")
	require.NoError(t, err)
	require.Contains(t, out, `"errors": []`)

	_, _, err = runCmd(t, "mock", "-schema", schemaPath, "-query", `{ licenses {`)
	require.Error(t, err)

	_, _, err = runCmd(t, "mock", "-schema", schemaPath, "-query", `{ licenses { key } }`, "-variables", "{")
	require.ErrorContains(t, err, "invalid -variables JSON")

	_, _, err = runCmd(t, "mock", "-schema", schemaPath)
	require.EqualError(t, err, "-schema and -query are required")
}

func TestMockConfigResolvers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema.graphql", testSDL)
	configPath := writeFile(t, dir, "graphmock.yaml", `
schema: schema.graphql
resolvers:
  Query.license:
    response:
      key: mit
      name: MIT License
`)
	out, _, err := runCmd(t, "mock",
		"-schema", filepath.Join(dir, "schema.graphql"),
		"-config", configPath,
		"-query", `{ license(key: "x") { key name featured } }`)
	require.NoError(t, err)
	require.Contains(t, out, `"key": "mit"`)
	require.Contains(t, out, `"name": "MIT License"`)
	require.Contains(t, out, `"featured"`)
}

func TestServeConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema.graphql", testSDL)
	configPath := writeFile(t, dir, "graphmock.yaml", `
schema: schema.graphql
listen: ":9000"
server:
  timeout: 3s
  cors: ["https://a.example"]
log:
  level: debug
`)

	cfg, err := loadServeConfig([]string{"-config", configPath, "-server.addr", ":9001", "-server.cors", "https://b.example"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "schema.graphql"), cfg.Schema)
	require.Equal(t, ":9001", cfg.Listen)
	require.Equal(t, 3*time.Second, time.Duration(cfg.Server.Timeout))
	require.Equal(t, []string{"https://b.example"}, cfg.Server.CORS)
	require.Equal(t, "debug", cfg.Log.Level)

	cfg, err = loadServeConfig([]string{"-schema", "x.graphql", "-server.metadata-header", "Authorization", "-server.metadata-header", "X-Tenant"})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, []string{"Authorization", "X-Tenant"}, cfg.Server.ForwardHeaders)

	_, err = loadServeConfig([]string{"-nope"})
	require.Error(t, err)
}

func TestServeRequiresSchema(t *testing.T) {
	_, stderr, err := runCmd(t, "serve")
	require.EqualError(t, err, "-schema is required")
	require.Contains(t, stderr, "serve FLAGS:")
}

func TestHandler(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema.graphql", testSDL)
	writeFile(t, dir, "fixture.json", `{"data":{"licenses":[{"key":"apache-2.0"}]}}`)
	configPath := writeFile(t, dir, "graphmock.yaml", `
schema: schema.graphql
fixture: fixture.json
`)
	cfg, err := loadServeConfig([]string{"-config", configPath})
	require.NoError(t, err)

	h, err := newHandler(cfg, logging.Nop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ licenses { key } }"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"licenses":[{"key":"apache-2.0"}]},"errors":[]}`, rec.Body.String())
}
