package language

import (
	"errors"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document. Syntax errors are returned as *Error.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: source})
	if err != nil {
		return nil, asError(err)
	}
	return doc, nil
}

// ParseSchema parses SDL without validating it.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, asError(err)
	}
	return doc, nil
}

func asError(err error) error {
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return ge
	}
	return &gqlerror.Error{Err: err, Message: err.Error()}
}

// ValueToGo converts an AST value to a Go value. Variable references are
// looked up in variables; a missing variable converts to nil.
func ValueToGo(value *Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case Variable:
		return variables[value.Raw]
	case IntValue:
		if iv, err := strconv.Atoi(value.Raw); err == nil {
			return iv
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case StringValue, BlockValue, EnumValue:
		return value.Raw
	case BooleanValue:
		return value.Raw == "true"
	case NullValue:
		return nil
	case ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueToGo(c.Value, variables)
		}
		return out
	case ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = ValueToGo(f.Value, variables)
		}
		return m
	default:
		return nil
	}
}

// ContainsVariable reports whether value references a variable anywhere.
func ContainsVariable(value *Value) bool {
	if value == nil {
		return false
	}
	if value.Kind == Variable {
		return true
	}
	for _, c := range value.Children {
		if ContainsVariable(c.Value) {
			return true
		}
	}
	return false
}
