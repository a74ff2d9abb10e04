package schema

import (
	"fmt"
	"strings"

	"github.com/hanpama/graphmock/internal/language"
)

// Violation is one problem found while loading SDL.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (v *Violation) String() string {
	if v.File == "" {
		return v.Message
	}
	return fmt.Sprintf("%s %s:%d:%d", v.Message, v.File, v.Line, v.Column)
}

// ParseError is returned by Load when the SDL is malformed or inconsistent.
// It carries every violation found, not only the first.
type ParseError struct {
	Violations []*Violation
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("schema violations found:\n")
	for _, v := range e.Violations {
		b.WriteString("- ")
		b.WriteString(v.String())
		b.WriteString("\n")
	}
	return b.String()
}

func violationWithPosition(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos != nil {
		v.Line = pos.Line
		v.Column = pos.Column
		if pos.Src != nil {
			v.File = pos.Src.Name
		}
	}
	return v
}

func violationFromSyntax(err *language.Error) *Violation {
	v := &Violation{Message: err.Message}
	if len(err.Locations) > 0 {
		v.Line = err.Locations[0].Line
		v.Column = err.Locations[0].Column
	}
	if file, ok := err.Extensions["file"].(string); ok {
		v.File = file
	}
	return v
}

func violationReservedName(kind, name string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("%s name %q cannot start with '__' (reserved prefix)", kind, name),
		pos,
	)
}

func violationDefinitionAlreadyExists(name string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Definition %q already exists", name), pos)
}

func violationDefinitionNotFoundForExtension(name string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Definition %q not found for extension", name), pos)
}

func violationUnexpectedTypeForExtension(name string, got, want TypeKind, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Cannot extend %s %q as %s", got, name, want),
		pos,
	)
}

func violationDuplicateField(kind TypeKind, fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate field %q found in %s %q", fieldName, kind, typeName),
		pos,
	)
}

func violationDuplicateArgument(argName, owner string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate argument %q found in %s", argName, owner),
		pos,
	)
}

func violationDuplicateEnumValue(valueName, enumName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate enum value %q found in enum %q", valueName, enumName),
		pos,
	)
}

func violationDuplicateMember(member, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q is listed more than once on %q", member, typeName),
		pos,
	)
}

func violationTypeNotFound(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q not found in definitions", typeName), pos)
}

func violationTypeNotInput(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q is not an input type", typeName), pos)
}

func violationTypeNotOutput(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q is not an output type", typeName), pos)
}

func violationNotInterface(typeName, owner string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q implemented by %q is not an interface", typeName, owner),
		pos,
	)
}

func violationUnionMemberNotObject(member, union string, kind TypeKind, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Union member %q of %q must be an Object type, but got %s", member, union, kind),
		pos,
	)
}

func violationMissingInterfaceField(iface, field, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Interface field %s.%s expected but %s does not provide it", iface, field, typeName),
		pos,
	)
}

func violationInvalidDefault(name string, err error, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Invalid default value for %q: %v", name, err), pos)
}

func violationSchemaAlreadyDefined(pos *language.Position) *Violation {
	return violationWithPosition("Schema is already defined", pos)
}

func violationDirectiveAlreadyDefined(name string, pos *language.Position) *Violation {
	return violationWithPosition("Directive @"+name+" is already defined", pos)
}

func violationRootTypeNotFound(kind, typeName string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s type %q not found in definitions", kind, typeName)}
}

func violationRootTypeNotObject(kind, typeName string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s type %q must be an Object type", kind, typeName)}
}

func violationQueryRootRequired() *Violation {
	return &Violation{Message: "Query root type must be provided"}
}
