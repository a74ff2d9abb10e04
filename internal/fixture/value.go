package fixture

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hanpama/graphmock/internal/response"
)

// Kind tags a fixture Value.
type Kind int

const (
	// Absent means the fixture says nothing; the synthesized value stays.
	Absent Kind = iota
	// Null explicitly overrides to null.
	Null
	Scalar
	List
	Object
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a partial response tree. The zero Value is Absent.
type Value struct {
	Kind   Kind
	Scalar any
	Items  []Value
	// Keys keeps object key order; Fields holds the values.
	Keys   []string
	Fields map[string]Value
}

func NullValue() Value { return Value{Kind: Null} }
func ScalarValue(v any) Value { return Value{Kind: Scalar, Scalar: v} }
func ListValue(items ...Value) Value { return Value{Kind: List, Items: items} }

// ObjectValue builds an object from alternating key, Value pairs.
func ObjectValue(pairs ...any) Value {
	v := Value{Kind: Object, Fields: make(map[string]Value, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.set(pairs[i].(string), pairs[i+1].(Value))
	}
	return v
}

func (v *Value) set(key string, field Value) {
	if _, ok := v.Fields[key]; !ok {
		v.Keys = append(v.Keys, key)
	}
	v.Fields[key] = field
}

// Get returns the field named key, or an Absent value.
func (v Value) Get(key string) Value {
	if v.Kind != Object {
		return Value{}
	}
	return v.Fields[key]
}

// Interface converts v into response data: nil, a scalar, []any or
// *response.Object. Every call returns fresh containers.
func (v Value) Interface() any {
	switch v.Kind {
	case Scalar:
		return v.Scalar
	case List:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		obj := response.NewObject()
		for _, k := range v.Keys {
			obj.Set(k, v.Fields[k].Interface())
		}
		return obj
	default:
		return nil
	}
}

// FromAny converts plain Go data into a Value. Maps with string keys become
// objects with sorted keys; *response.Object keeps its order.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case *response.Object:
		if t == nil {
			return NullValue()
		}
		v := Value{Kind: Object, Fields: make(map[string]Value, t.Len())}
		for _, k := range t.Keys() {
			field, _ := t.Get(k)
			v.set(k, FromAny(field))
		}
		return v
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		v := Value{Kind: Object, Fields: make(map[string]Value, len(t))}
		for _, k := range keys {
			v.set(k, FromAny(t[k]))
		}
		return v
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return ListValue(items...)
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return NullValue()
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return NullValue()
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return ListValue(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return ScalarValue(in)
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return FromAny(m)
	default:
		return ScalarValue(in)
	}
}
