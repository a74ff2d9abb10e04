package validator_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

const testSDL = `
interface Node { id: ID! }

type User implements Node {
  id: ID!
  name: String
  friends(first: Int = 10): [User!]!
}

type Post implements Node {
  id: ID!
  title: String!
  author: User
}

union Feed = User | Post

enum Role { ADMIN MEMBER }

input UserFilter {
  role: Role = MEMBER
  name: String!
}

type Query {
  node(id: ID!): Node
  user(id: ID, role: Role, filter: UserFilter): User
  feed(first: Int): [Feed!]!
  version: String
}

type Mutation {
  rename(id: ID!, name: String!): User
}
`

func mustSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Load(testSDL)
	require.NoError(t, err)
	return sch
}

func validate(t *testing.T, query string, vars map[string]any) (*validator.Operation, []*response.Error) {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return validator.Validate(mustSchema(t), doc, "", vars)
}

func messages(errs []*response.Error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

func responseNames(sels []*validator.Selection) []string {
	var out []string
	for _, s := range sels {
		out = append(out, s.ResponseName)
	}
	return out
}

func TestValidate_ValidDocument(t *testing.T) {
	op, errs := validate(t, `query Q($id: ID) {
  me: user(id: $id) { id name friends(first: 3) { name } }
  version
}`, map[string]any{"id": 7})
	require.Empty(t, errs)
	require.Equal(t, "Q", op.Name)
	require.Equal(t, "Query", op.RootType.Name)
	require.Equal(t, []string{"me", "version"}, responseNames(op.Selections))

	me := op.Selections[0]
	require.True(t, me.Valid())
	require.Equal(t, "me", me.Alias)
	require.Equal(t, "user", me.Name)
	require.Equal(t, "7", me.Arguments["id"])
	require.Equal(t, response.Path{"me"}, me.Path)
	require.Equal(t, response.Location{Line: 2, Column: 3}, me.Position)
	require.Equal(t, []string{"id", "name", "friends"}, responseNames(me.Children))

	friends := me.Children[2]
	require.Equal(t, map[string]any{"first": 3}, friends.Arguments)
	require.Equal(t, response.Path{"me", "friends"}, friends.Path)
}

func TestValidate_UnknownField(t *testing.T) {
	op, errs := validate(t, `{
  user { name invalid friends { bogus name } }
  nope
}`, nil)

	want := []*response.Error{
		{Message: `Cannot query field "invalid" on type "User".`, Locations: []response.Location{{Line: 2, Column: 15}}, Path: response.Path{"user", "invalid"}},
		{Message: `Cannot query field "bogus" on type "User".`, Locations: []response.Location{{Line: 2, Column: 33}}, Path: response.Path{"user", "friends", "bogus"}},
		{Message: `Cannot query field "nope" on type "Query".`, Locations: []response.Location{{Line: 3, Column: 3}}, Path: response.Path{"nope"}},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	user := op.Selections[0]
	require.True(t, user.Valid())
	require.Nil(t, user.Children[1].Field)
	require.False(t, user.Children[1].Valid())
	require.Nil(t, op.Selections[1].Field)
}

func TestValidate_FieldConflicts(t *testing.T) {
	const hint = " Use different aliases on the fields to fetch both if this was intentional."
	op, errs := validate(t, `{
  a: user { name }
  a: version
  user(id: "1") { id }
  user(id: "2") { name }
  me: user { x: name }
  me: user { x: id }
  feed { ... on User { v: name } ... on Post { v: title } }
}`, nil)

	want := []*response.Error{
		{
			Message:   `Fields "v" conflict because they return conflicting types String and String!.` + hint,
			Locations: []response.Location{{Line: 8, Column: 24}, {Line: 8, Column: 48}},
			Path:      response.Path{"feed", "v"},
		},
		{
			Message:   `Fields "a" conflict because user and version are different fields.` + hint,
			Locations: []response.Location{{Line: 2, Column: 3}, {Line: 3, Column: 3}},
			Path:      response.Path{"a"},
		},
		{
			Message:   `Fields "user" conflict because they have differing arguments.` + hint,
			Locations: []response.Location{{Line: 4, Column: 3}, {Line: 5, Column: 3}},
			Path:      response.Path{"user"},
		},
		{
			Message:   `Fields "me" conflict because subfields "x" conflict because name and id are different fields.` + hint,
			Locations: []response.Location{{Line: 6, Column: 3}, {Line: 7, Column: 3}},
			Path:      response.Path{"me"},
		},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	valid := func(sels []*validator.Selection) []bool {
		out := make([]bool, len(sels))
		for i, s := range sels {
			out[i] = s.Valid()
		}
		return out
	}
	require.Equal(t, []bool{true, false, true, false, true, false, true}, valid(op.Selections))
	require.Equal(t, []bool{true, false}, valid(op.Selections[6].Children))
}

func TestValidate_CompatibleOverlaps(t *testing.T) {
	_, errs := validate(t, `{
  version
  version
  user { name }
  user { id name }
  feed { ... on User { x: id } ... on Post { x: id } }
}`, nil)
	require.Empty(t, errs)
}

func TestValidate_AbstractParents(t *testing.T) {
	op, errs := validate(t, `{
  node(id: 1) { id title ... on Post { title } }
  feed { __typename ... on User { name } ...PostParts }
}
fragment PostParts on Post { title author { name } }`, nil)

	require.Equal(t, []string{`Cannot query field "title" on type "Node".`}, messages(errs))

	node := op.Selections[0]
	require.Equal(t, []string{"id", "title", "title"}, responseNames(node.Children))
	require.Equal(t, "Post", node.Children[2].TypeCondition)
	require.Equal(t, "Post", node.Children[2].ParentType.Name)

	sch := mustSchema(t)
	feed := op.Selections[1]
	require.Equal(t, []string{"__typename", "name", "title", "author"}, responseNames(feed.Children))
	require.True(t, feed.Children[1].AppliesTo(sch, "User"))
	require.False(t, feed.Children[1].AppliesTo(sch, "Post"))
	require.True(t, feed.Children[0].AppliesTo(sch, "Post"))
}

func TestValidate_Arguments(t *testing.T) {
	for _, tc := range []struct {
		name  string
		query string
		vars  map[string]any
		want  []string
		args  map[string]any
	}{
		{
			name:  "unknown argument",
			query: `{ user(nope: 1) { id } }`,
			want:  []string{`Unknown argument "nope" on field "Query.user".`},
			args:  map[string]any{},
		},
		{
			name:  "missing required argument",
			query: `{ node { id } }`,
			want:  []string{`Field "node" argument "id" of type "ID!" is required, but it was not provided.`},
			args:  map[string]any{},
		},
		{
			name:  "invalid enum",
			query: `{ user(role: OWNER) { id } }`,
			want:  []string{`Argument "role" has invalid value: value "OWNER" does not exist in "Role" enum.`},
			args:  map[string]any{},
		},
		{
			name:  "input object defaults",
			query: `{ user(filter: {name: "ann"}) { id } }`,
			args:  map[string]any{"filter": map[string]any{"name": "ann", "role": "MEMBER"}},
		},
		{
			name:  "input object missing field",
			query: `{ user(filter: {role: ADMIN}) { id } }`,
			want:  []string{`Argument "filter" has invalid value: field "UserFilter.name" of required type "String!" was not provided.`},
			args:  map[string]any{},
		},
		{
			name:  "variables substituted",
			query: `query ($role: Role, $f: UserFilter) { user(role: $role, filter: $f) { id } }`,
			vars:  map[string]any{"role": "ADMIN", "f": map[string]any{"name": "x"}},
			args:  map[string]any{"role": "ADMIN", "filter": map[string]any{"name": "x", "role": "MEMBER"}},
		},
		{
			name:  "absent variable uses nothing",
			query: `query ($id: ID) { user(id: $id) { id } }`,
			args:  map[string]any{},
		},
		{
			name:  "undefined variable",
			query: `{ user(id: $id) { id } }`,
			want:  []string{`Variable "$id" is not defined.`},
			args:  map[string]any{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			op, errs := validate(t, tc.query, tc.vars)
			if len(tc.want) == 0 {
				require.Empty(t, errs)
			} else {
				require.Equal(t, tc.want, messages(errs))
			}
			require.True(t, op.Selections[0].Valid())
			require.Equal(t, tc.args, op.Selections[0].Arguments)
		})
	}
}

func TestValidate_ArgumentDefaults(t *testing.T) {
	op, errs := validate(t, `query ($n: Int) { user { friends(first: $n) { id } } }`, nil)
	require.Empty(t, errs)
	friends := op.Selections[0].Children[0]
	require.EqualValues(t, 10, friends.Arguments["first"])
}

func TestValidate_Variables(t *testing.T) {
	_, errs := validate(t, `query ($id: ID!, $n: Int) { node(id: $id) { id } feed(first: $n) { __typename } }`,
		map[string]any{"n": "many"})
	require.Equal(t, []string{
		`Variable "$id" of required type "ID!" was not provided.`,
		`Variable "$n" got invalid value "many"; Int cannot represent non-integer value "many".`,
		`Field "node" argument "id" of type "ID!" is required, but it was not provided.`,
	}, messages(errs))
}

func TestValidate_SelectionShape(t *testing.T) {
	op, errs := validate(t, `{ version { length } user }`, nil)
	require.Equal(t, []string{
		`Field "version" must not have a selection since type "String" has no subfields.`,
		`Field "user" of type "User" must have a selection of subfields. Did you mean "user { ... }"?`,
	}, messages(errs))
	require.False(t, op.Selections[0].Valid())
	require.False(t, op.Selections[1].Valid())
	require.NotNil(t, op.Selections[1].Field)
}

func TestValidate_Fragments(t *testing.T) {
	_, errs := validate(t, `{
  user { ...Missing ... on Nope { id } ...Loop ... on Post { id } }
}
fragment Loop on User { id ...Loop }`, nil)
	require.Equal(t, []string{
		`Unknown fragment "Missing".`,
		`Unknown type "Nope".`,
		`Cannot spread fragment "Loop" within itself.`,
		`Fragment cannot be spread here as objects of type "User" can never be of type "Post".`,
	}, messages(errs))
}

func TestValidate_FragmentErrorsReportedOnce(t *testing.T) {
	_, errs := validate(t, `{
  a: user { ...F }
  b: user { ...F }
}
fragment F on User { missing }`, nil)
	require.Equal(t, []string{`Cannot query field "missing" on type "User".`}, messages(errs))
}

func TestValidate_SkipInclude(t *testing.T) {
	op, errs := validate(t, `query ($yes: Boolean!) {
  version @skip(if: true)
  user @include(if: $yes) { id bogus @skip(if: $yes) }
  ... on Query @include(if: false) { nope }
}`, map[string]any{"yes": true})
	require.Empty(t, errs)
	require.Equal(t, []string{"user"}, responseNames(op.Selections))
	require.Equal(t, []string{"id"}, responseNames(op.Selections[0].Children))
}

func TestValidate_OperationSelection(t *testing.T) {
	sch := mustSchema(t)
	doc, err := language.ParseQuery(`query A { version } mutation B { rename(id: 1, name: "x") { id } }`)
	require.NoError(t, err)

	op, errs := validator.Validate(sch, doc, "", nil)
	require.Nil(t, op)
	require.Equal(t, []string{"Must provide operation name if query contains multiple operations."}, messages(errs))

	op, errs = validator.Validate(sch, doc, "C", nil)
	require.Nil(t, op)
	require.Equal(t, []string{`Unknown operation named "C".`}, messages(errs))

	op, errs = validator.Validate(sch, doc, "B", nil)
	require.Empty(t, errs)
	require.Equal(t, language.Mutation, op.Kind)
	require.Equal(t, "Mutation", op.RootType.Name)
}

func TestValidate_MissingMutationRoot(t *testing.T) {
	sch, err := schema.Load(`type Query { a: String }`)
	require.NoError(t, err)
	doc, err := language.ParseQuery(`mutation { a }`)
	require.NoError(t, err)
	op, errs := validator.Validate(sch, doc, "", nil)
	require.Nil(t, op)
	require.Equal(t, []string{"Schema is not configured for mutations."}, messages(errs))
}
