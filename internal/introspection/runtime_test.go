package introspection_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphmock/internal/introspection"
	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/mock"
	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

const sdl = `
"Repository issue."
type Issue {
  id: ID!
  title: String! @deprecated(reason: "use name")
  name: String
  labels(first: Int = 10, state: State = OPEN): [String!]!
}

enum State { OPEN CLOSED @deprecated }

type Query {
  hello: String
  issue: Issue
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Load(sdl)
	require.NoError(t, err)
	return sch
}

func run(t *testing.T, w *introspection.Wrapper, query string) (string, []*response.Error) {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	op, errs := validator.Validate(w.Schema, doc, "", nil)
	require.Empty(t, errs)
	data, errs := mock.NewSynthesizer(w.Schema, mock.WithRuntime(w.Runtime)).Synthesize(context.Background(), op)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return string(b), errs
}

func TestIntrospectionEnabled(t *testing.T) {
	sch := buildSchema(t)
	w, err := introspection.Wrap(nil, sch)
	require.NoError(t, err)

	got, errs := run(t, w, `{ __schema { queryType { name } mutationType { name } } }`)
	require.Empty(t, errs)
	require.JSONEq(t, `{"__schema":{"queryType":{"name":"Query"},"mutationType":null}}`, got)

	require.Nil(t, sch.Types["__Schema"], "the loaded schema must not change")
	require.Nil(t, sch.GetQueryType().Field("__schema"))
}

func TestTypeQuery(t *testing.T) {
	w, err := introspection.Wrap(nil, buildSchema(t))
	require.NoError(t, err)

	got, errs := run(t, w, `{
  __type(name: "Issue") {
    kind name description
    fields { name isDeprecated type { kind name ofType { kind name ofType { kind name } } } }
  }
}`)
	require.Empty(t, errs)
	require.JSONEq(t, `{"__type":{"kind":"OBJECT","name":"Issue","description":"Repository issue.","fields":[
  {"name":"id","isDeprecated":false,"type":{"kind":"NON_NULL","name":null,"ofType":{"kind":"SCALAR","name":"ID","ofType":null}}},
  {"name":"name","isDeprecated":false,"type":{"kind":"SCALAR","name":"String","ofType":null}},
  {"name":"labels","isDeprecated":false,"type":{"kind":"NON_NULL","name":null,"ofType":{"kind":"LIST","name":null,"ofType":{"kind":"NON_NULL","name":null}}}}
]}}`, got)

	got, _ = run(t, w, `{ __type(name: "Missing") { name } }`)
	require.JSONEq(t, `{"__type":null}`, got)
}

func TestDeprecationAndDefaults(t *testing.T) {
	w, err := introspection.Wrap(nil, buildSchema(t))
	require.NoError(t, err)

	got, errs := run(t, w, `{
  issue: __type(name: "Issue") {
    fields(includeDeprecated: true) { name deprecationReason args { name defaultValue } }
  }
  state: __type(name: "State") { enumValues { name } all: enumValues(includeDeprecated: true) { name isDeprecated } }
}`)
	require.Empty(t, errs)
	require.JSONEq(t, `{
  "issue":{"fields":[
    {"name":"id","deprecationReason":null,"args":[]},
    {"name":"title","deprecationReason":"use name","args":[]},
    {"name":"name","deprecationReason":null,"args":[]},
    {"name":"labels","deprecationReason":null,"args":[{"name":"first","defaultValue":"10"},{"name":"state","defaultValue":"OPEN"}]}
  ]},
  "state":{"enumValues":[{"name":"OPEN"}],"all":[{"name":"OPEN","isDeprecated":false},{"name":"CLOSED","isDeprecated":true}]}
}`, got)
}

func TestSchemaListsIntrospectionTypes(t *testing.T) {
	w, err := introspection.Wrap(nil, buildSchema(t))
	require.NoError(t, err)

	got, errs := run(t, w, `{ __schema { types { name } directives { name locations } } }`)
	require.Empty(t, errs)

	var out struct {
		Schema struct {
			Types []struct {
				Name string `json:"name"`
			} `json:"types"`
			Directives []struct {
				Name string `json:"name"`
			} `json:"directives"`
		} `json:"__schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(got), &out))
	var names []string
	for _, typ := range out.Schema.Types {
		names = append(names, typ.Name)
	}
	require.IsIncreasing(t, names)
	require.Contains(t, names, "__Schema")
	require.Contains(t, names, "Issue")
	require.Contains(t, names, "String")
	require.Len(t, out.Schema.Directives, 4)
}

func TestDelegatesToBase(t *testing.T) {
	base := mock.NewResolvers(map[string]mock.Resolver{
		"Query.hello": mock.NewValueResolver("world"),
	})
	w, err := introspection.Wrap(base, buildSchema(t))
	require.NoError(t, err)

	got, errs := run(t, w, `{ hello __typename __type(name: "Query") { fields { name } } }`)
	require.Empty(t, errs)
	require.JSONEq(t, `{"hello":"world","__typename":"Query","__type":{"fields":[{"name":"hello"},{"name":"issue"}]}}`, got)
}
