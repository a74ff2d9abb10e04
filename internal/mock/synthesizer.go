// Package mock synthesizes response data for a validated operation.
//
// Every valid selection gets a value. Values come, in order of preference,
// from the parent value a resolver returned, from the Runtime, and finally
// from schema-driven synthesis. Synthesized values are deterministic: the
// same operation against the same schema always yields the same data.
package mock

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

// DefaultMaxListLength caps the length of lists sized by a page-size hint.
const DefaultMaxListLength = 100

// Synthesizer produces response data for validated operations. It holds
// no per-call state and may be shared.
type Synthesizer struct {
	schema        *schema.Schema
	runtime       Runtime
	scalars       map[string]ScalarFunc
	maxListLength int
}

type Option func(*Synthesizer)

// WithRuntime sets the Runtime consulted before synthesis.
func WithRuntime(rt Runtime) Option {
	return func(s *Synthesizer) { s.runtime = rt }
}

// WithScalar overrides the stand-in value generator for a scalar type.
func WithScalar(name string, fn ScalarFunc) Option {
	return func(s *Synthesizer) { s.scalars[name] = fn }
}

// WithMaxListLength sets the upper bound applied to page-size hints.
func WithMaxListLength(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxListLength = n
		}
	}
}

func NewSynthesizer(sch *schema.Schema, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		schema:        sch,
		scalars:       make(map[string]ScalarFunc),
		maxListLength: DefaultMaxListLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// synthesis holds the state of one Synthesize call.
type synthesis struct {
	*Synthesizer
	ctx    context.Context
	errors []*response.Error
}

// Synthesize builds the data tree for op. The returned errors come from
// resolvers and from values that do not fit the schema.
func (s *Synthesizer) Synthesize(ctx context.Context, op *validator.Operation) (*response.Object, []*response.Error) {
	st := &synthesis{Synthesizer: s, ctx: ctx}
	data := st.completeObject(op.RootType, op.Selections, nil, nil, 0)
	return data, st.errors
}

func (st *synthesis) addError(sel *validator.Selection, path response.Path, format string, args ...any) {
	st.errors = append(st.errors, response.Errorf(sel.Position, path, format, args...))
}

// completeObject produces the object for objectType from the flattened
// selections of every field merged into it. hint is a page-size hint
// inherited from a non-list parent; it sizes list fields directly below.
func (st *synthesis) completeObject(objectType *schema.Type, selections []*validator.Selection, source any, path response.Path, hint int) *response.Object {
	out := response.NewObject()
	for _, group := range collectFields(st.schema, objectType, selections) {
		first := group.Selections[0]
		fieldPath := path.Append(group.ResponseName)

		if first.Name == validator.TypenameField.Name {
			out.Set(group.ResponseName, objectType.Name)
			continue
		}

		def := objectType.Field(first.Name)
		if def == nil {
			def = first.Field
		}

		value, present, err := st.resolve(objectType, def, first, source)
		if err != nil {
			st.addError(first, fieldPath, "%s", err.Error())
			out.Set(group.ResponseName, nil)
			continue
		}

		ownHint, hasHint := pageHint(first.Arguments, st.maxListLength)
		fieldHint := hint
		if hasHint {
			fieldHint = ownHint
		}
		c := completion{
			selection: first,
			children:  group.children(),
			hint:      fieldHint,
			hinted:    hasHint,
		}
		out.Set(group.ResponseName, st.completeValue(def.Type, c, value, present, fieldPath))
	}
	return out
}

// resolve finds a provided value for a field. present is false when the
// value has to be synthesized.
func (st *synthesis) resolve(objectType *schema.Type, def *schema.Field, sel *validator.Selection, source any) (value any, present bool, err error) {
	if v, ok := lookupSource(source, def.Name); ok {
		return v, true, nil
	}
	if st.runtime == nil {
		return nil, false, nil
	}
	v, ok, err := st.runtime.Resolve(st.ctx, objectType.Name, def.Name, source, sel.Arguments)
	if err != nil {
		return nil, true, err
	}
	return v, ok, nil
}

// completion carries what completeValue needs about the field being completed.
type completion struct {
	selection *validator.Selection
	children  []*validator.Selection
	// hint is the list length to use, zero for the default.
	hint int
	// hinted is set when the field itself carries a page-size argument.
	hinted bool
}

func (st *synthesis) completeValue(typ *schema.TypeRef, c completion, value any, present bool, path response.Path) any {
	if typ.IsNonNull() {
		if present && isNullish(value) {
			st.addError(c.selection, path, "Cannot return null for non-nullable field %s.%s.", c.selection.ParentType.Name, c.selection.Name)
			return nil
		}
		return st.completeValue(typ.OfType, c, value, present, path)
	}
	if present && isNullish(value) {
		return nil
	}

	if typ.Kind == schema.TypeRefKindList {
		if present {
			return st.completeListValue(typ, c, value, path)
		}
		return st.synthesizeList(typ, c, path)
	}

	named := st.schema.ResolveType(typ.Named)
	if named == nil {
		st.addError(c.selection, path, "Unknown type %q.", typ.Named)
		return nil
	}

	switch named.Kind {
	case schema.TypeKindScalar:
		if present {
			return serializeLeaf(value)
		}
		return st.synthesizeScalar(named, c.selection, path)
	case schema.TypeKindEnum:
		if present {
			return serializeLeaf(value)
		}
		if len(named.EnumValues) == 0 {
			return nil
		}
		return named.EnumValues[0].Name
	case schema.TypeKindObject:
		return st.completeObject(named, c.children, source(value, present), path, st.childHint(c))
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete := st.concreteType(named, value, present)
		if concrete == nil {
			st.addError(c.selection, path, "Abstract type %q has no possible types.", named.Name)
			return nil
		}
		return st.completeObject(concrete, c.children, source(value, present), path, st.childHint(c))
	default:
		st.addError(c.selection, path, "Cannot complete value of unexpected type: %s", named.Kind)
		return nil
	}
}

// childHint passes a page-size hint on a non-list field down to its
// direct list children.
func (st *synthesis) childHint(c completion) int {
	if c.hinted {
		return c.hint
	}
	return 0
}

func source(value any, present bool) any {
	if !present {
		return nil
	}
	return value
}

func (st *synthesis) completeListValue(listType *schema.TypeRef, c completion, result any, path response.Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			st.addError(c.selection, path, "Expected list value, got %T", result)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := c
	inner.hinted = false
	completed := make([]any, len(items))
	for i, item := range items {
		completed[i] = st.completeValue(listType.OfType, inner, item, true, path.Append(i))
	}
	return completed
}

// synthesizeList builds a non-empty list. Only the outermost list dimension
// uses the hint; nested dimensions have one element.
func (st *synthesis) synthesizeList(listType *schema.TypeRef, c completion, path response.Path) any {
	n := 1
	if c.hint > 0 {
		n = c.hint
	}
	inner := c
	inner.hint = 0
	inner.hinted = false
	out := make([]any, n)
	for i := range out {
		out[i] = st.completeValue(listType.OfType, inner, nil, false, path.Append(i))
	}
	return out
}

// concreteType chooses the object type for an abstract value: the value's
// __typename, then the Runtime, then the first possible type.
func (st *synthesis) concreteType(abstract *schema.Type, value any, present bool) *schema.Type {
	if present {
		if name, ok := typenameOf(value); ok && st.isConcrete(abstract, name) {
			return st.schema.ResolveType(name)
		}
	}
	if st.runtime != nil {
		if name, err := st.runtime.ResolveType(st.ctx, abstract.Name, source(value, present)); err == nil && st.isConcrete(abstract, name) {
			return st.schema.ResolveType(name)
		}
	}
	possible := st.schema.PossibleTypes(abstract.Name)
	if len(possible) == 0 {
		return nil
	}
	return possible[0]
}

func (st *synthesis) isConcrete(abstract *schema.Type, name string) bool {
	t := st.schema.ResolveType(name)
	return t != nil && t.Kind == schema.TypeKindObject && st.schema.IsPossibleType(abstract.Name, name)
}

// serializeLeaf turns a provided leaf value into a JSON-safe value.
// Pointers are dereferenced and named string kinds become plain strings.
func serializeLeaf(value any) any {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		if s, ok := value.(fmt.Stringer); ok {
			return s.String()
		}
		return rv.Interface()
	}
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
