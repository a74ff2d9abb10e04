package schema

import (
	"errors"
	"strings"

	"github.com/hanpama/graphmock/internal/language"
)

// Load builds a Schema from SDL. Any syntax or consistency problem is
// reported as a *ParseError listing every violation found.
func Load(sdl string) (*Schema, error) {
	return LoadSource("schema.graphql", sdl)
}

// LoadSource is Load with an explicit source name used in violations.
func LoadSource(name, sdl string) (*Schema, error) {
	l := newLoader(NewSchema(""), false)
	return l.load(name, sdl)
}

// Extend returns a copy of base with the definitions and extensions in sdl
// applied. base is not modified. Reserved "__" names are allowed so that
// introspection types can be declared.
func Extend(base *Schema, sdl string) (*Schema, error) {
	l := newLoader(base.clone(), true)
	return l.load("extension.graphql", sdl)
}

type loader struct {
	schema        *Schema
	allowReserved bool
	owned         map[string]bool
	violations    []*Violation
	doc           *language.SchemaDocument
}

func newLoader(base *Schema, allowReserved bool) *loader {
	return &loader{
		schema:        base,
		allowReserved: allowReserved,
		owned:         make(map[string]bool),
	}
}

func (l *loader) addViolation(v ...*Violation) {
	l.violations = append(l.violations, v...)
}

func (l *loader) load(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		var syntaxErr *language.Error
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Violations: []*Violation{violationFromSyntax(syntaxErr)}}
		}
		return nil, &ParseError{Violations: []*Violation{{Message: err.Error()}}}
	}
	l.doc = doc

	l.populateDefinitions()
	l.populateExtensions()
	for _, node := range doc.Definitions {
		l.populateMembers(node)
	}
	for _, node := range doc.Extensions {
		l.populateMembers(node)
	}
	l.populateDirectiveDefinitions()
	l.processSchemaDefinitions()
	l.populatePossibleTypes()
	l.validateImplementations()

	if len(l.violations) > 0 {
		return nil, &ParseError{Violations: l.violations}
	}
	return l.schema, nil
}

// mutable returns a type that may be modified by this load, copying types
// shared with a base schema first.
func (l *loader) mutable(name string) *Type {
	t := l.schema.Types[name]
	if t == nil || l.owned[name] {
		return t
	}
	t = t.Copy()
	l.schema.Types[name] = t
	l.owned[name] = true
	return t
}

func kindOf(kind language.DefinitionKind) TypeKind {
	switch kind {
	case language.Object:
		return TypeKindObject
	case language.Interface:
		return TypeKindInterface
	case language.Union:
		return TypeKindUnion
	case language.Enum:
		return TypeKindEnum
	case language.InputObject:
		return TypeKindInputObject
	default:
		return TypeKindScalar
	}
}

func (l *loader) populateDefinitions() {
	for _, node := range l.doc.Definitions {
		if !l.allowReserved && strings.HasPrefix(node.Name, "__") {
			l.addViolation(violationReservedName("Type", node.Name, node.Position))
			continue
		}
		if _, ok := l.schema.Types[node.Name]; ok {
			l.addViolation(violationDefinitionAlreadyExists(node.Name, node.Position))
			continue
		}
		t := NewType(node.Name, kindOf(node.Kind), node.Description)
		l.applyTypeDirectives(t, node)
		l.schema.AddType(t)
		l.owned[node.Name] = true
	}
}

func (l *loader) populateExtensions() {
	for _, node := range l.doc.Extensions {
		t := l.schema.Types[node.Name]
		if t == nil {
			l.addViolation(violationDefinitionNotFoundForExtension(node.Name, node.Position))
			continue
		}
		if want := kindOf(node.Kind); t.Kind != want {
			l.addViolation(violationUnexpectedTypeForExtension(node.Name, t.Kind, want, node.Position))
			continue
		}
		l.applyTypeDirectives(l.mutable(node.Name), node)
	}
}

func (l *loader) applyTypeDirectives(t *Type, node *language.Definition) {
	if d := node.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			t.SetSpecifiedByURL(arg.Value.Raw)
		}
	}
	if node.Directives.ForName("oneOf") != nil {
		t.SetOneOf(true)
	}
}

// populateMembers fills fields, enum values, union members and interfaces.
// Extension nodes append to the definition they extend.
func (l *loader) populateMembers(node *language.Definition) {
	t := l.schema.Types[node.Name]
	if t == nil || t.Kind != kindOf(node.Kind) {
		return
	}
	t = l.mutable(node.Name)

	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, fieldNode := range node.Fields {
			if !l.allowReserved && strings.HasPrefix(fieldNode.Name, "__") {
				l.addViolation(violationReservedName("Field", fieldNode.Name, fieldNode.Position))
				continue
			}
			if t.Field(fieldNode.Name) != nil {
				l.addViolation(violationDuplicateField(t.Kind, fieldNode.Name, t.Name, fieldNode.Position))
				continue
			}
			t.AddField(l.projectField(t.Name, fieldNode))
		}
		for _, name := range node.Interfaces {
			l.addInterface(t, name, node.Position)
		}
	case TypeKindInputObject:
		for _, fieldNode := range node.Fields {
			if t.InputField(fieldNode.Name) != nil {
				l.addViolation(violationDuplicateField(t.Kind, fieldNode.Name, t.Name, fieldNode.Position))
				continue
			}
			in := NewInputValue(fieldNode.Name, fieldNode.Description, l.projectTypeRef(fieldNode.Type, typeRefModeInput))
			l.setDefault(in, fieldNode.DefaultValue)
			l.applyDeprecation(fieldNode.Directives, func(r string) { in.Deprecate(r) })
			t.AddInputField(in)
		}
	case TypeKindEnum:
		for _, valueNode := range node.EnumValues {
			if t.EnumValue(valueNode.Name) != nil {
				l.addViolation(violationDuplicateEnumValue(valueNode.Name, t.Name, valueNode.Position))
				continue
			}
			v := NewEnumValue(valueNode.Name, valueNode.Description)
			l.applyDeprecation(valueNode.Directives, func(r string) { v.Deprecate(r) })
			t.AddEnumValue(v)
		}
	case TypeKindUnion:
		for _, member := range node.Types {
			mt, ok := l.schema.Types[member]
			switch {
			case !ok:
				l.addViolation(violationTypeNotFound(member, node.Position))
			case mt.Kind != TypeKindObject:
				l.addViolation(violationUnionMemberNotObject(member, t.Name, mt.Kind, node.Position))
			case contains(t.PossibleTypes, member):
				l.addViolation(violationDuplicateMember(member, t.Name, node.Position))
			default:
				t.AddPossibleType(member)
			}
		}
	}
}

func (l *loader) addInterface(t *Type, name string, pos *language.Position) {
	it, ok := l.schema.Types[name]
	switch {
	case !ok:
		l.addViolation(violationTypeNotFound(name, pos))
	case it.Kind != TypeKindInterface:
		l.addViolation(violationNotInterface(name, t.Name, pos))
	case contains(t.Interfaces, name):
		l.addViolation(violationDuplicateMember(name, t.Name, pos))
	default:
		t.AddInterface(name)
	}
}

func (l *loader) projectField(owner string, node *language.FieldDefinition) *Field {
	f := NewField(node.Name, node.Description, l.projectTypeRef(node.Type, typeRefModeOutput))
	for _, argNode := range node.Arguments {
		if !l.allowReserved && strings.HasPrefix(argNode.Name, "__") {
			l.addViolation(violationReservedName("Argument", argNode.Name, argNode.Position))
			continue
		}
		if f.Argument(argNode.Name) != nil {
			l.addViolation(violationDuplicateArgument(argNode.Name, owner+"."+node.Name, argNode.Position))
			continue
		}
		f.AddArgument(l.projectArgument(argNode))
	}
	l.applyDeprecation(node.Directives, func(r string) { f.Deprecate(r) })
	return f
}

func (l *loader) projectArgument(node *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(node.Name, node.Description, l.projectTypeRef(node.Type, typeRefModeInput))
	l.setDefault(in, node.DefaultValue)
	l.applyDeprecation(node.Directives, func(r string) { in.Deprecate(r) })
	return in
}

func (l *loader) setDefault(in *InputValue, value *language.Value) {
	if value == nil {
		return
	}
	v, err := value.Value(nil)
	if err != nil {
		l.addViolation(violationInvalidDefault(in.Name, err, value.Position))
		return
	}
	in.SetDefault(v)
}

func (l *loader) applyDeprecation(directives language.DirectiveList, deprecate func(reason string)) {
	d := directives.ForName("deprecated")
	if d == nil {
		return
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	deprecate(reason)
}

type typeRefMode int

const (
	typeRefModeInput typeRefMode = iota
	typeRefModeOutput
)

func (l *loader) projectTypeRef(node *language.Type, mode typeRefMode) *TypeRef {
	if node == nil {
		return nil
	}
	if node.NonNull {
		inner := *node
		inner.NonNull = false
		return NonNullType(l.projectTypeRef(&inner, mode))
	}
	if node.Elem != nil {
		return ListType(l.projectTypeRef(node.Elem, mode))
	}
	t, ok := l.schema.Types[node.NamedType]
	if !ok {
		l.addViolation(violationTypeNotFound(node.NamedType, node.Position))
		return NamedType(node.NamedType)
	}
	if mode == typeRefModeInput && !t.IsInput() {
		l.addViolation(violationTypeNotInput(node.NamedType, node.Position))
	}
	if mode == typeRefModeOutput && !t.IsOutput() {
		l.addViolation(violationTypeNotOutput(node.NamedType, node.Position))
	}
	return NamedType(node.NamedType)
}

// TypeRefOf converts a parsed type reference without checking that the
// named type exists.
func TypeRefOf(node *language.Type) *TypeRef {
	if node.NonNull {
		inner := *node
		inner.NonNull = false
		return NonNullType(TypeRefOf(&inner))
	}
	if node.Elem != nil {
		return ListType(TypeRefOf(node.Elem))
	}
	return NamedType(node.NamedType)
}

func (l *loader) populateDirectiveDefinitions() {
	for _, node := range l.doc.Directives {
		if _, ok := l.schema.Directives[node.Name]; ok {
			l.addViolation(violationDirectiveAlreadyDefined(node.Name, node.Position))
			continue
		}
		d := NewDirective(node.Name, node.Description).SetRepeatable(node.IsRepeatable)
		for _, loc := range node.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, argNode := range node.Arguments {
			if d.argument(argNode.Name) != nil {
				l.addViolation(violationDuplicateArgument(argNode.Name, "@"+node.Name, argNode.Position))
				continue
			}
			d.AddArgument(l.projectArgument(argNode))
		}
		l.schema.AddDirective(d)
	}
}

func (d *Directive) argument(name string) *InputValue {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (l *loader) processSchemaDefinitions() {
	defined := false
	for _, def := range l.doc.Schema {
		if defined {
			l.addViolation(violationSchemaAlreadyDefined(def.Position))
			continue
		}
		defined = true
		l.setRoots(def)
	}
	for _, def := range l.doc.SchemaExtension {
		l.setRoots(def)
	}

	if !defined {
		if l.schema.QueryType == "" && l.schema.Types["Query"] != nil {
			l.schema.SetQueryType("Query")
		}
		if l.schema.MutationType == "" && l.schema.Types["Mutation"] != nil {
			l.schema.SetMutationType("Mutation")
		}
		if l.schema.SubscriptionType == "" && l.schema.Types["Subscription"] != nil {
			l.schema.SetSubscriptionType("Subscription")
		}
	}

	if l.schema.QueryType == "" {
		l.addViolation(violationQueryRootRequired())
	}
	l.checkRoot("Query", l.schema.QueryType)
	l.checkRoot("Mutation", l.schema.MutationType)
	l.checkRoot("Subscription", l.schema.SubscriptionType)
}

func (l *loader) setRoots(def *language.SchemaDefinition) {
	for _, op := range def.OperationTypes {
		switch op.Operation {
		case language.Query:
			l.schema.SetQueryType(op.Type)
		case language.Mutation:
			l.schema.SetMutationType(op.Type)
		case language.Subscription:
			l.schema.SetSubscriptionType(op.Type)
		}
	}
}

func (l *loader) checkRoot(kind, name string) {
	if name == "" {
		return
	}
	t, ok := l.schema.Types[name]
	if !ok {
		l.addViolation(violationRootTypeNotFound(kind, name))
	} else if t.Kind != TypeKindObject {
		l.addViolation(violationRootTypeNotObject(kind, name))
	}
}

// populatePossibleTypes records, for every interface, the object types
// implementing it in declaration order.
func (l *loader) populatePossibleTypes() {
	implementors := make(map[string][]string)
	for _, name := range l.schema.typeOrder {
		t := l.schema.Types[name]
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			implementors[iface] = append(implementors[iface], name)
		}
	}
	for _, name := range l.schema.typeOrder {
		t := l.schema.Types[name]
		if t.Kind != TypeKindInterface || equalStrings(t.PossibleTypes, implementors[name]) {
			continue
		}
		l.mutable(name).PossibleTypes = implementors[name]
	}
}

func (l *loader) validateImplementations() {
	for _, node := range l.doc.Definitions {
		t := l.schema.Types[node.Name]
		if t == nil || (t.Kind != TypeKindObject && t.Kind != TypeKindInterface) {
			continue
		}
		for _, ifaceName := range t.Interfaces {
			iface := l.schema.Types[ifaceName]
			if iface == nil {
				continue
			}
			for _, f := range iface.Fields {
				if t.Field(f.Name) == nil {
					l.addViolation(violationMissingInterfaceField(ifaceName, f.Name, t.Name, node.Position))
				}
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
