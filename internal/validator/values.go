package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/schema"
)

// coerceVariables coerces provided variable values according to their
// declared types. Variables that are missing, invalid or of unknown type
// are reported and left absent.
func (v *validator) coerceVariables(op *language.OperationDefinition, provided map[string]any) {
	v.defined = make(map[string]*language.VariableDefinition, len(op.VariableDefinitions))
	v.variables = make(map[string]any)

	for _, def := range op.VariableDefinitions {
		name := def.Variable
		v.defined[name] = def
		loc := locationOf(def.Position)
		typ := schema.TypeRefOf(def.Type)

		if named := v.schema.ResolveType(typ.GetNamedType()); named == nil {
			v.report(loc, nil, "Unknown type %q.", typ.GetNamedType())
			continue
		} else if !named.IsInput() {
			v.report(loc, nil, "Variable \"$%s\" cannot be non-input type %q.", name, typ.String())
			continue
		}

		val, ok := provided[name]
		if !ok {
			if def.DefaultValue != nil {
				val, ok = language.ValueToGo(def.DefaultValue, nil), true
			} else if typ.IsNonNull() {
				v.report(loc, nil, "Variable \"$%s\" of required type %q was not provided.", name, typ.String())
				continue
			} else {
				continue
			}
		}
		if val == nil && typ.IsNonNull() {
			v.report(loc, nil, "Variable \"$%s\" of non-null type %q must not be null.", name, typ.String())
			continue
		}
		cv, err := coerceValue(v.schema, val, typ)
		if err != nil {
			v.report(loc, nil, "Variable \"$%s\" got invalid value %s; %v.", name, describe(val), err)
			continue
		}
		v.variables[name] = cv
	}
}

// arguments resolves the arguments of a field. Problems are reported
// against the field; a bad argument falls back to its declared default.
func (v *validator) arguments(parent *schema.Type, def *schema.Field, sel *language.Field, node *Selection) map[string]any {
	coerced := make(map[string]any)
	for _, arg := range sel.Arguments {
		loc := locationOf(arg.Position)
		argDef := def.Argument(arg.Name)
		if argDef == nil {
			v.report(loc, node.Path, "Unknown argument %q on field \"%s.%s\".", arg.Name, parent.Name, def.Name)
			continue
		}
		if !v.variablesDefined(arg.Value, node) {
			continue
		}
		if arg.Value.Kind == language.Variable {
			if _, ok := v.variables[arg.Value.Raw]; !ok {
				// absent variable: the declared default applies below
				continue
			}
		}
		val := language.ValueToGo(arg.Value, v.variables)
		cv, err := coerceValue(v.schema, val, argDef.Type)
		if err != nil {
			v.report(loc, node.Path, "Argument %q has invalid value: %v.", arg.Name, err)
			continue
		}
		coerced[arg.Name] = cv
	}

	for _, argDef := range def.Arguments {
		if _, ok := coerced[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			coerced[argDef.Name] = argDef.DefaultValue
			continue
		}
		if argDef.Type.IsNonNull() && !v.argumentAttempted(sel, argDef.Name) {
			v.report(node.Position, node.Path, "Field %q argument %q of type %q is required, but it was not provided.", def.Name, argDef.Name, argDef.Type.String())
		}
	}
	return coerced
}

// argumentAttempted reports whether the argument appears literally in the
// document. Bad values were already reported, so they are not reported twice.
func (v *validator) argumentAttempted(sel *language.Field, name string) bool {
	arg := sel.Arguments.ForName(name)
	if arg == nil {
		return false
	}
	if arg.Value.Kind == language.Variable {
		_, defined := v.defined[arg.Value.Raw]
		_, known := v.variables[arg.Value.Raw]
		return !defined || known
	}
	return true
}

// variablesDefined reports undeclared variables referenced by value.
func (v *validator) variablesDefined(value *language.Value, node *Selection) bool {
	if value == nil {
		return true
	}
	if value.Kind == language.Variable {
		if _, ok := v.defined[value.Raw]; !ok {
			v.report(locationOf(value.Position), node.Path, "Variable \"$%s\" is not defined.", value.Raw)
			return false
		}
		return true
	}
	ok := true
	for _, child := range value.Children {
		if !v.variablesDefined(child.Value, node) {
			ok = false
		}
	}
	return ok
}

// coerceValue coerces a value to the specified GraphQL type.
func coerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value of type %q", targetType.String())
		}
		return coerceValue(sch, value, schema.Unwrap(targetType))
	}

	if value == nil {
		return nil, nil
	}

	if targetType.Kind == schema.TypeRefKindList {
		return coerceListValue(sch, value, targetType)
	}

	namedType := schema.GetNamedType(targetType)
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	t := sch.ResolveType(namedType)
	if t == nil {
		return nil, fmt.Errorf("unknown type %q", namedType)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		return coerceToEnum(value, t)
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, value, t)
	default:
		// custom scalars pass through unchanged
		return value, nil
	}
}

// coerceListValue coerces a value to a list. A single value becomes a list of one.
func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	innerType := schema.Unwrap(listType)
	if slice, ok := value.([]any); ok {
		coercedSlice := make([]any, len(slice))
		for i, item := range slice {
			coercedItem, err := coerceValue(sch, item, innerType)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			coercedSlice[i] = coercedItem
		}
		return coercedSlice, nil
	}

	coercedItem, err := coerceValue(sch, value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{coercedItem}, nil
}

func coerceInputObject(sch *schema.Schema, value any, t *schema.Type) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected type %q to be an object", t.Name)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t.InputField(k) == nil {
			return nil, fmt.Errorf("field %q is not defined by type %q", k, t.Name)
		}
	}

	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		fv, ok := m[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if f.Type.IsNonNull() {
				return nil, fmt.Errorf("field \"%s.%s\" of required type %q was not provided", t.Name, f.Name, f.Type.String())
			}
			continue
		}
		cv, err := coerceValue(sch, fv, f.Type)
		if err != nil {
			return nil, fmt.Errorf("in field %q: %w", f.Name, err)
		}
		out[f.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one key must be specified for OneOf type %q", t.Name)
	}
	return out, nil
}

func coerceToEnum(value any, t *schema.Type) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("enum %q cannot represent non-string value %s", t.Name, describe(value))
	}
	if t.EnumValue(s) == nil {
		return nil, fmt.Errorf("value %q does not exist in %q enum", s, t.Name)
	}
	return s, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return checkInt32(int64(v), value)
	case int32:
		return int(v), nil
	case int64:
		return checkInt32(v, value)
	case float64:
		if v == math.Trunc(v) {
			return checkInt32(int64(v), value)
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return checkInt32(int64(v), value)
		}
	case string:
		if intVal, err := strconv.Atoi(v); err == nil {
			return checkInt32(int64(intVal), value)
		}
	}
	return nil, fmt.Errorf("Int cannot represent non-integer value %s", describe(value))
}

func checkInt32(n int64, original any) (any, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value %s", describe(original))
	}
	return int(n), nil
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if floatVal, err := strconv.ParseFloat(v, 64); err == nil {
			return floatVal, nil
		}
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value %s", describe(value))
}

func coerceToString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case map[string]any, []any:
		return nil, fmt.Errorf("String cannot represent a non string value: %s", describe(value))
	}
	return fmt.Sprintf("%v", value), nil
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", describe(value))
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent value: %s", describe(value))
}

// describe renders a value the way it would appear in JSON.
func describe(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}
