package response_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphmock/internal/response"
)

func TestPath(t *testing.T) {
	p := response.Path{"viewer", "repository"}
	q := p.Append("issues").Append(3).Append("title")
	require.Equal(t, "viewer.repository.issues[3].title", q.String())
	require.Len(t, p, 2, "Append must not modify the receiver")
	require.Equal(t, "", response.Path(nil).String())
}

func TestObject(t *testing.T) {
	o := response.NewObject()
	o.Set("b", 1)
	o.Set("a", []any{response.NewObject(), nil})
	o.Set("b", 2)

	require.Equal(t, []string{"b", "a"}, o.Keys())
	require.Equal(t, 2, o.Len())

	b, err := json.Marshal(o)
	require.NoError(t, err)
	require.Equal(t, `{"b":2,"a":[{},null]}`, string(b))
	require.Equal(t, map[string]any{"b": 2, "a": []any{map[string]any{}, nil}}, o.Map())

	var nilObj *response.Object
	require.Zero(t, nilObj.Len())
	b, err = json.Marshal(response.Result{Data: nilObj, Errors: []*response.Error{}})
	require.NoError(t, err)
	require.Equal(t, `{"data":null,"errors":[]}`, string(b))
}

func TestObjectLookup(t *testing.T) {
	inner := response.NewObject()
	inner.Set("name", "MIT")
	o := response.NewObject()
	o.Set("licenses", []any{inner, nil})

	v, ok := o.Lookup("licenses", 0, "name")
	require.True(t, ok)
	require.Equal(t, "MIT", v)

	v, ok = o.Lookup("licenses", 1)
	require.True(t, ok)
	require.Nil(t, v)

	for _, path := range []response.Path{
		{"missing"},
		{"licenses", 2},
		{"licenses", "name"},
		{"licenses", 1, "name"},
		{1.5},
	} {
		_, ok := o.Lookup(path...)
		require.False(t, ok, path.String())
	}
}

func TestError(t *testing.T) {
	e := response.Errorf(response.Location{Line: 2, Column: 5}, response.Path{"a", 0}, "bad %s", "thing")
	require.Equal(t, "bad thing (line 2, column 5)", e.Error())

	c := e.Clone()
	c.Path[0] = "b"
	c.Locations[0].Line = 9
	require.Equal(t, response.Path{"a", 0}, e.Path)
	require.Equal(t, 2, e.Locations[0].Line)

	require.Nil(t, response.Errorf(response.Location{}, nil, "x").Locations)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"bad thing","locations":[{"line":2,"column":5}],"path":["a",0]}`, string(b))
}
