// Package fixture overlays caller-supplied response data and errors onto
// synthesized results.
package fixture

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/graphmock/internal/response"
)

// Fixture is caller-supplied response data and errors. A nil *Fixture and
// the zero Fixture both mean "synthesize everything, add no errors".
type Fixture struct {
	Data   Value
	Errors []*response.Error
}

// New builds a fixture from plain Go data. A nil data leaves Data absent.
func New(data any, errs ...*response.Error) *Fixture {
	f := &Fixture{Errors: errs}
	if data != nil {
		f.Data = FromAny(data)
	}
	return f
}

// Map renders the fixture for encoding as JSON.
func (f *Fixture) Map() map[string]any {
	out := make(map[string]any)
	if f == nil {
		return out
	}
	if f.Data.Kind != Absent {
		out["data"] = f.Data.Interface()
	}
	if len(f.Errors) > 0 {
		out["errors"] = f.Errors
	}
	return out
}

var (
	ErrNotObject     = errors.New("fixture must be an object")
	ErrDataNotObject = errors.New("fixture data must be an object or null")
)

// Parse decodes a JSON or YAML fixture document of the form
// {data: {...}, errors: [{message, locations, path}]}. Object key order is
// preserved. An empty document yields an empty fixture.
func Parse(src []byte) (*Fixture, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	f := &Fixture{}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return f, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return f, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotObject
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "data":
			data, err := decodeValue(value)
			if err != nil {
				return nil, fmt.Errorf("fixture data: %w", err)
			}
			if data.Kind != Object && data.Kind != Null {
				return nil, ErrDataNotObject
			}
			f.Data = data
		case "errors":
			errs, err := decodeErrors(value)
			if err != nil {
				return nil, err
			}
			f.Errors = errs
		}
	}
	return f, nil
}

func decodeValue(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.MappingNode:
		v := Value{Kind: Object, Fields: make(map[string]Value, len(node.Content)/2)}
		for i := 0; i+1 < len(node.Content); i += 2 {
			field, err := decodeValue(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			v.set(node.Content[i].Value, field)
		}
		return v, nil
	case yaml.SequenceNode:
		items := make([]Value, len(node.Content))
		for i, child := range node.Content {
			item, err := decodeValue(child)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return ListValue(items...), nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return NullValue(), nil
		}
		var scalar any
		if err := node.Decode(&scalar); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return ScalarValue(scalar), nil
	default:
		return Value{}, fmt.Errorf("line %d: unexpected node", node.Line)
	}
}

type errorEntry struct {
	Message    string              `yaml:"message"`
	Locations  []response.Location `yaml:"locations"`
	Path       []any               `yaml:"path"`
	Extensions map[string]any      `yaml:"extensions"`
}

func decodeErrors(node *yaml.Node) ([]*response.Error, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	var entries []errorEntry
	if err := node.Decode(&entries); err != nil {
		return nil, fmt.Errorf("fixture errors: %w", err)
	}
	out := make([]*response.Error, len(entries))
	for i, e := range entries {
		if e.Message == "" {
			return nil, fmt.Errorf("fixture errors[%d]: message is required", i)
		}
		out[i] = &response.Error{
			Message:    e.Message,
			Locations:  e.Locations,
			Extensions: e.Extensions,
		}
		if e.Path != nil {
			out[i].Path = make(response.Path, len(e.Path))
			for j, elem := range e.Path {
				out[i].Path[j] = elem
			}
		}
	}
	return out, nil
}
