// Package validator checks an executable document against a schema and
// produces the selection tree the synthesizer walks.
//
// Validation never stops at the first problem. Each invalid field, argument
// or fragment yields one located error, and the rest of the document is
// still checked. Invalid field selections stay in the tree with a nil Field
// so callers can see them, but they are never expanded.
package validator

import (
	"fmt"

	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
)

// Operation is a validated operation ready for synthesis.
type Operation struct {
	Kind       language.Operation
	Name       string
	RootType   *schema.Type
	Selections []*Selection
	// Variables holds the coerced values of the variables that were provided
	// or defaulted. Absent variables have no key.
	Variables map[string]any
}

// Selection is one field selection after fragments have been inlined.
type Selection struct {
	ResponseName string
	Alias        string
	Name         string
	// ParentType is the type the field was looked up on: the enclosing
	// field's type, or the type condition of the innermost fragment.
	ParentType *schema.Type
	// TypeCondition is the innermost fragment type condition, or "".
	TypeCondition string
	// Conditions lists every enclosing fragment type condition, outermost first.
	Conditions []string
	// Field is nil when the field does not exist on ParentType.
	Field     *schema.Field
	Arguments map[string]any
	Children  []*Selection
	Position  response.Location
	Path      response.Path
	// Invalid marks a known field whose selection shape is wrong.
	Invalid bool
}

// Valid reports whether the selection should produce data.
func (s *Selection) Valid() bool {
	return s.Field != nil && !s.Invalid
}

// AppliesTo reports whether the selection is included when the enclosing
// object resolves to typeName.
func (s *Selection) AppliesTo(sch *schema.Schema, typeName string) bool {
	for _, cond := range s.Conditions {
		if !sch.IsPossibleType(cond, typeName) {
			return false
		}
	}
	return true
}

// TypenameField is the implicit __typename meta field available on every
// composite type.
var TypenameField = &schema.Field{
	Name:        "__typename",
	Description: "The name of the current Object type at runtime.",
	Type:        schema.NonNullType(schema.NamedType("String")),
}

// Validate validates the operation selected by operationName. A nil
// Operation is returned only when no operation can be selected; the errors
// then describe why.
func Validate(sch *schema.Schema, doc *language.QueryDocument, operationName string, variables map[string]any) (*Operation, []*response.Error) {
	v := &validator{
		schema:    sch,
		doc:       doc,
		reported:  make(map[string]bool),
		spreading: make(map[string]bool),
	}

	opDef, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, []*response.Error{err}
	}

	op := &Operation{Kind: opDef.Operation, Name: opDef.Name}
	op.RootType, err = rootType(sch, opDef)
	if err != nil {
		return nil, []*response.Error{err}
	}

	v.coerceVariables(opDef, variables)
	op.Variables = v.variables
	v.selectionSet(op.RootType, opDef.SelectionSet, nil, nil, &op.Selections)
	v.checkOverlaps(op.Selections)

	return op, v.errors
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, *response.Error) {
	if name != "" {
		if op := doc.Operations.ForName(name); op != nil {
			return op, nil
		}
		return nil, response.Errorf(response.Location{}, nil, "Unknown operation named %q.", name)
	}
	switch len(doc.Operations) {
	case 0:
		return nil, response.Errorf(response.Location{}, nil, "Must provide an operation.")
	case 1:
		return doc.Operations[0], nil
	default:
		return nil, response.Errorf(response.Location{}, nil, "Must provide operation name if query contains multiple operations.")
	}
}

func rootType(sch *schema.Schema, op *language.OperationDefinition) (*schema.Type, *response.Error) {
	var t *schema.Type
	var kind string
	switch op.Operation {
	case language.Mutation:
		t, kind = sch.GetMutationType(), "mutations"
	case language.Subscription:
		t, kind = sch.GetSubscriptionType(), "subscriptions"
	default:
		t, kind = sch.GetQueryType(), "queries"
	}
	if t == nil {
		return nil, response.Errorf(locationOf(op.Position), nil, "Schema is not configured for %s.", kind)
	}
	return t, nil
}

type validator struct {
	schema    *schema.Schema
	doc       *language.QueryDocument
	defined   map[string]*language.VariableDefinition
	variables map[string]any
	errors    []*response.Error
	reported  map[string]bool
	spreading map[string]bool
}

// report records an error once per message and location. Fragments spread
// in several places are walked each time but report their problems once.
func (v *validator) report(loc response.Location, path response.Path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	key := fmt.Sprintf("%d:%d:%s", loc.Line, loc.Column, msg)
	if v.reported[key] {
		return
	}
	v.reported[key] = true
	v.errors = append(v.errors, response.Errorf(loc, path, "%s", msg))
}

func locationOf(pos *language.Position) response.Location {
	if pos == nil {
		return response.Location{}
	}
	return response.Location{Line: pos.Line, Column: pos.Column}
}
