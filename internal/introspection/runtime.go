// Package introspection answers __schema and __type queries from the
// loaded schema, delegating every other field to a wrapped runtime.
package introspection

import (
	"context"
	"sort"
	"strings"

	"github.com/hanpama/graphmock/internal/mock"
	"github.com/hanpama/graphmock/internal/schema"
)

// Wrapper holds the introspection runtime and the schema extended with
// introspection types. Operations must be validated and synthesized
// against Schema for the __ fields to be known.
type Wrapper struct {
	Runtime mock.Runtime
	Schema  *schema.Schema
}

// Wrap returns a Runtime that handles GraphQL introspection fields and
// passes everything else to base. base may be nil. sch is not modified.
func Wrap(base mock.Runtime, sch *schema.Schema) (*Wrapper, error) {
	extended, err := extendSchemaWithIntrospection(sch)
	if err != nil {
		return nil, err
	}
	return &Wrapper{
		Runtime: &runtime{base: base, schema: extended},
		Schema:  extended,
	}, nil
}

type runtime struct {
	base   mock.Runtime
	schema *schema.Schema
}

func (r *runtime) Resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, bool, error) {
	switch src := source.(type) {
	case *schema.Schema:
		return resolveSchemaField(src, field)
	case *schema.Type:
		return resolveTypeField(r.schema, src, field, args)
	case *schema.TypeRef:
		return resolveTypeRefField(r.schema, src, field)
	case *schema.Field:
		return resolveFieldField(r.schema, src, field, args)
	case *schema.InputValue:
		return resolveInputValueField(r.schema, src, field)
	case *schema.EnumValue:
		return resolveEnumValueField(src, field)
	case *schema.Directive:
		return resolveDirectiveField(src, field, args)
	}

	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, true, nil
		case "__type":
			return r.resolveTypeQuery(args), true, nil
		}
	}

	if r.base == nil {
		return nil, false, nil
	}
	return r.base.Resolve(ctx, objectType, field, source, args)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if r.base == nil {
		return "", mock.ErrNoTypeResolver
	}
	return r.base.ResolveType(ctx, abstractType, value)
}

// --- helpers ---

func (r *runtime) resolveTypeQuery(args map[string]any) *schema.Type {
	name, _ := args["name"].(string)
	if name == "" {
		return nil
	}
	return r.schema.Types[name]
}

// typeOf maps a field's type reference onto the value __Type is resolved
// from: the named *schema.Type itself, or the wrapping reference.
func typeOf(sch *schema.Schema, ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		if t := sch.Types[ref.Named]; t != nil {
			return t
		}
		return nil
	}
	return ref
}

func resolveSchemaTypes(sch *schema.Schema) []*schema.Type {
	out := make([]*schema.Type, 0, len(sch.Types))
	for _, t := range sch.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveSchemaDirectives(sch *schema.Schema) []*schema.Directive {
	dirs := make([]*schema.Directive, 0, len(sch.Directives))
	for _, d := range sch.Directives {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs
}

func resolveTypeFields(t *schema.Type, args map[string]any) []*schema.Field {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.Field{}
	for _, f := range t.Fields {
		if strings.HasPrefix(f.Name, "__") {
			continue
		}
		if !includeDeprecated && f.IsDeprecated {
			continue
		}
		out = append(out, f)
	}
	return out
}

func resolveTypeInterfaces(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	out := make([]*schema.Type, 0, len(t.Interfaces))
	for _, name := range t.Interfaces {
		if def := sch.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	return out
}

func resolveTypePossibleTypes(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if !t.IsAbstract() {
		return nil
	}
	return sch.PossibleTypes(t.Name)
}

func resolveTypeEnumValues(t *schema.Type, args map[string]any) []*schema.EnumValue {
	if t.Kind != schema.TypeKindEnum {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.EnumValue{}
	for _, ev := range t.EnumValues {
		if !includeDeprecated && ev.IsDeprecated {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func resolveTypeInputFields(t *schema.Type, args map[string]any) []*schema.InputValue {
	if t.Kind != schema.TypeKindInputObject {
		return nil
	}
	return filterDeprecated(t.InputFields, args)
}

func filterDeprecated(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.InputValue{}
	for _, v := range values {
		if !includeDeprecated && v.IsDeprecated {
			continue
		}
		out = append(out, v)
	}
	return out
}

func deprecationReason(deprecated bool, reason string) *string {
	if deprecated {
		return &reason
	}
	return nil
}

// description maps an empty description to null.
func description(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func resolveSchemaField(sch *schema.Schema, field string) (any, bool, error) {
	switch field {
	case "types":
		return resolveSchemaTypes(sch), true, nil
	case "queryType":
		return sch.GetQueryType(), true, nil
	case "mutationType":
		return sch.GetMutationType(), true, nil
	case "subscriptionType":
		return sch.GetSubscriptionType(), true, nil
	case "directives":
		return resolveSchemaDirectives(sch), true, nil
	case "description":
		return description(sch.Description), true, nil
	}
	return nil, false, nil
}

func resolveTypeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool, error) {
	switch field {
	case "kind":
		return string(t.Kind), true, nil
	case "name":
		return t.Name, true, nil
	case "description":
		return description(t.Description), true, nil
	case "specifiedByURL":
		return t.SpecifiedByURL, true, nil
	case "fields":
		return resolveTypeFields(t, args), true, nil
	case "interfaces":
		return resolveTypeInterfaces(sch, t), true, nil
	case "possibleTypes":
		return resolveTypePossibleTypes(sch, t), true, nil
	case "enumValues":
		return resolveTypeEnumValues(t, args), true, nil
	case "inputFields":
		return resolveTypeInputFields(t, args), true, nil
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true, nil
		}
		return t.OneOf, true, nil
	case "ofType":
		return nil, true, nil
	}
	return nil, false, nil
}

// resolveTypeRefField serves __Type for LIST and NON_NULL wrappers. Named
// references never reach it; typeOf resolves them to the type itself.
func resolveTypeRefField(sch *schema.Schema, tr *schema.TypeRef, field string) (any, bool, error) {
	switch field {
	case "kind":
		return string(tr.Kind), true, nil
	case "ofType":
		return typeOf(sch, tr.OfType), true, nil
	default:
		return nil, true, nil
	}
}

func resolveFieldField(sch *schema.Schema, f *schema.Field, field string, args map[string]any) (any, bool, error) {
	switch field {
	case "name":
		return f.Name, true, nil
	case "description":
		return description(f.Description), true, nil
	case "args":
		return filterDeprecated(f.Arguments, args), true, nil
	case "type":
		return typeOf(sch, f.Type), true, nil
	case "isDeprecated":
		return f.IsDeprecated, true, nil
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), true, nil
	}
	return nil, false, nil
}

func resolveInputValueField(sch *schema.Schema, a *schema.InputValue, field string) (any, bool, error) {
	switch field {
	case "name":
		return a.Name, true, nil
	case "description":
		return description(a.Description), true, nil
	case "type":
		return typeOf(sch, a.Type), true, nil
	case "defaultValue":
		if literal, ok := sch.DefaultLiteral(a); ok {
			return literal, true, nil
		}
		return nil, true, nil
	case "isDeprecated":
		return a.IsDeprecated, true, nil
	case "deprecationReason":
		return deprecationReason(a.IsDeprecated, a.DeprecationReason), true, nil
	}
	return nil, false, nil
}

func resolveEnumValueField(ev *schema.EnumValue, field string) (any, bool, error) {
	switch field {
	case "name":
		return ev.Name, true, nil
	case "description":
		return description(ev.Description), true, nil
	case "isDeprecated":
		return ev.IsDeprecated, true, nil
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason), true, nil
	}
	return nil, false, nil
}

func resolveDirectiveField(d *schema.Directive, field string, args map[string]any) (any, bool, error) {
	switch field {
	case "name":
		return d.Name, true, nil
	case "description":
		return description(d.Description), true, nil
	case "isRepeatable":
		return d.IsRepeatable, true, nil
	case "locations":
		return d.Locations, true, nil
	case "args":
		return filterDeprecated(d.Arguments, args), true, nil
	}
	return nil, false, nil
}

func boolArg(args map[string]any, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}
