package fixture_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphmock/internal/fixture"
	"github.com/hanpama/graphmock/internal/response"
)

func object(pairs ...any) *response.Object {
	o := response.NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(pairs[i].(string), pairs[i+1])
	}
	return o
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func synthesized() *response.Object {
	return object(
		"viewer", object(
			"name", "name 1",
			"isHireable", true,
			"repository", object(
				"issues", object(
					"totalCount", 42,
					"edges", []any{object("node", object("id", "a", "title", "title 1"))},
				),
			),
		),
		"licenses", []any{object("id", "l1", "name", "name 2")},
	)
}

func TestParse(t *testing.T) {
	f, err := fixture.Parse([]byte(`{
  "data": {"viewer": {"name": "martin", "isHireable": false}, "licenses": [{"id": "x"}, null]},
  "errors": [{"message": "License with ID 2 could not be fetched.", "locations": [{"line": 3, "column": 7}], "path": ["licenses", 1, "name"]}]
}`))
	require.NoError(t, err)

	require.Equal(t, fixture.Object, f.Data.Kind)
	require.Equal(t, []string{"viewer", "licenses"}, f.Data.Keys)
	require.Equal(t, []string{"name", "isHireable"}, f.Data.Get("viewer").Keys)
	require.Equal(t, fixture.Null, f.Data.Get("licenses").Items[1].Kind)
	require.Equal(t, fixture.Absent, f.Data.Get("missing").Kind)

	want := []*response.Error{{
		Message:   "License with ID 2 could not be fetched.",
		Locations: []response.Location{{Line: 3, Column: 7}},
		Path:      response.Path{"licenses", 1, "name"},
	}}
	if diff := cmp.Diff(want, f.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_YAML(t *testing.T) {
	f, err := fixture.Parse([]byte(`
data:
  viewer:
    name: martin
    repository: null
errors:
  - message: boom
`))
	require.NoError(t, err)
	require.Equal(t, "martin", f.Data.Get("viewer").Get("name").Scalar)
	require.Equal(t, fixture.Null, f.Data.Get("viewer").Get("repository").Kind)
	require.Len(t, f.Errors, 1)
	require.Nil(t, f.Errors[0].Path)
}

func TestParse_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
	}{
		{name: "not an object", src: `[1, 2]`},
		{name: "data is a list", src: `{"data": [1]}`},
		{name: "error without message", src: `{"errors": [{"path": ["a"]}]}`},
		{name: "malformed", src: `{"data": {`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fixture.Parse([]byte(tc.src))
			require.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, src := range []string{"", "null", "{}"} {
		f, err := fixture.Parse([]byte(src))
		require.NoError(t, err)
		require.Equal(t, fixture.Absent, f.Data.Kind)
		require.Empty(t, f.Errors)
	}
}

func TestMerge_NestedOverride(t *testing.T) {
	f := fixture.New(map[string]any{
		"viewer": map[string]any{
			"name":       "martin",
			"isHireable": false,
			"unselected": "ignored",
		},
	})
	data, errs := fixture.Merge(synthesized(), nil, f, true)
	require.NotNil(t, errs)
	require.Empty(t, errs)

	want := `{"viewer":{"name":"martin","isHireable":false,"repository":{"issues":{"totalCount":42,"edges":[{"node":{"id":"a","title":"title 1"}}]}}},"licenses":[{"id":"l1","name":"name 2"}]}`
	require.JSONEq(t, want, mustJSON(t, data))
	require.Equal(t, []string{"viewer", "licenses"}, data.Keys())
}

func TestMerge_ListReplacesWholesale(t *testing.T) {
	edges := make([]any, 5)
	for i := range edges {
		edges[i] = map[string]any{"node": map[string]any{"id": i, "title": "test " + string(rune('a'+i))}}
	}
	f := fixture.New(map[string]any{
		"viewer": map[string]any{"repository": map[string]any{"issues": map[string]any{"edges": edges}}},
		"licenses": []any{
			map[string]any{"name": "GPL"},
			nil,
		},
	})
	data, _ := fixture.Merge(synthesized(), nil, f, true)

	got, ok := data.Lookup("viewer", "repository", "issues", "edges")
	require.True(t, ok)
	require.Len(t, got, 5)
	title, _ := data.Lookup("viewer", "repository", "issues", "edges", 4, "node", "title")
	require.Equal(t, "test e", title)

	licenses, _ := data.Lookup("licenses")
	require.Len(t, licenses, 2)
	first, _ := data.Lookup("licenses", 0)
	require.JSONEq(t, `{"name":"GPL"}`, mustJSON(t, first))
	second, ok := data.Lookup("licenses", 1)
	require.True(t, ok)
	require.Nil(t, second)
}

func TestMerge_EmptyListAndNull(t *testing.T) {
	f := fixture.New(map[string]any{
		"viewer":   map[string]any{"repository": nil},
		"licenses": []any{},
	})
	data, _ := fixture.Merge(synthesized(), nil, f, true)
	repo, ok := data.Lookup("viewer", "repository")
	require.True(t, ok)
	require.Nil(t, repo)
	licenses, _ := data.Lookup("licenses")
	require.Empty(t, licenses)
}

func TestMerge_NullData(t *testing.T) {
	f, err := fixture.Parse([]byte(`{"data": null}`))
	require.NoError(t, err)
	data, _ := fixture.Merge(synthesized(), nil, f, true)
	require.Nil(t, data)
}

func TestMerge_Errors(t *testing.T) {
	validation := []*response.Error{{Message: `Cannot query field "invalid" on type "License".`}}
	fixtureErr := &response.Error{Message: "License with ID 2 could not be fetched.", Path: response.Path{"licenses", 1, "name"}}
	f := fixture.New(nil, fixtureErr)

	_, errs := fixture.Merge(synthesized(), validation, f, true)
	require.Equal(t, []string{validation[0].Message, fixtureErr.Message}, []string{errs[0].Message, errs[1].Message})
	require.NotSame(t, fixtureErr, errs[1])

	_, errs = fixture.Merge(synthesized(), validation, f, false)
	require.NotNil(t, errs)
	require.Empty(t, errs)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	synth := synthesized()
	before := mustJSON(t, synth)
	f := fixture.New(map[string]any{"viewer": map[string]any{"name": "x"}})

	first, _ := fixture.Merge(synth, nil, f, true)
	second, _ := fixture.Merge(synth, nil, f, true)
	require.Equal(t, before, mustJSON(t, synth))
	require.Equal(t, mustJSON(t, first), mustJSON(t, second))
}

func TestMerge_NilFixture(t *testing.T) {
	synth := synthesized()
	data, errs := fixture.Merge(synth, nil, nil, true)
	require.Same(t, synth, data)
	require.NotNil(t, errs)
	require.Empty(t, errs)
}

func TestFromAny(t *testing.T) {
	type named string
	v := fixture.FromAny(map[string]any{
		"b":    []string{"x", "y"},
		"a":    named("n"),
		"null": nil,
	})
	require.Equal(t, []string{"a", "b", "null"}, v.Keys)
	require.Equal(t, fixture.List, v.Get("b").Kind)
	require.Len(t, v.Get("b").Items, 2)
	require.Equal(t, fixture.Null, v.Get("null").Kind)
	require.Equal(t, `{"a":"n","b":["x","y"],"null":null}`, mustJSON(t, v.Interface()))
}

func TestFixtureMap(t *testing.T) {
	f := fixture.New(map[string]any{"a": 1}, &response.Error{Message: "m"})
	require.JSONEq(t, `{"data":{"a":1},"errors":[{"message":"m"}]}`, mustJSON(t, f.Map()))
	require.Equal(t, map[string]any{}, (*fixture.Fixture)(nil).Map())
}
