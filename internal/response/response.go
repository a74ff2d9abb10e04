// Package response holds the GraphQL response envelope shared by the
// validator, the synthesizer and the fixture merger.
package response

import (
	"fmt"
	"strings"
)

// Path locates a value in a response tree. Elements are string field names
// or int list indices.
type Path []PathElement

type PathElement any

// Append returns a copy of p extended with elem.
func (p Path) Append(elem PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// Location is a 1-based line/column position in the query text.
type Location struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Error is a GraphQL error entry.
type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	for _, loc := range e.Locations {
		msg += fmt.Sprintf(" (line %d, column %d)", loc.Line, loc.Column)
	}
	return msg
}

// Clone returns a deep copy of e.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	out := &Error{Message: e.Message}
	if e.Locations != nil {
		out.Locations = append([]Location(nil), e.Locations...)
	}
	if e.Path != nil {
		out.Path = append(Path(nil), e.Path...)
	}
	if e.Extensions != nil {
		out.Extensions = make(map[string]any, len(e.Extensions))
		for k, v := range e.Extensions {
			out.Extensions[k] = v
		}
	}
	return out
}

// Errorf builds an Error located at loc (when non-zero) and path.
func Errorf(loc Location, path Path, format string, args ...any) *Error {
	err := &Error{Message: fmt.Sprintf(format, args...), Path: path}
	if loc.Line > 0 {
		err.Locations = []Location{loc}
	}
	return err
}

// Result is the {data, errors} envelope. Errors is always encoded as an array.
type Result struct {
	Data   *Object  `json:"data"`
	Errors []*Error `json:"errors"`
}

// Messages returns the error messages in order.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}
