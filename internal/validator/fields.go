package validator

import (
	"github.com/hanpama/graphmock/internal/language"
	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
)

// selectionSet validates set against parent and appends the resulting nodes
// to out in document order, inlining fragments.
func (v *validator) selectionSet(parent *schema.Type, set language.SelectionSet, path response.Path, conds []string, out *[]*Selection) {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *language.Field:
			if !v.shouldInclude(sel.Directives) {
				continue
			}
			*out = append(*out, v.field(parent, sel, path, conds))

		case *language.InlineFragment:
			if !v.shouldInclude(sel.Directives) {
				continue
			}
			if sel.TypeCondition == "" {
				v.selectionSet(parent, sel.SelectionSet, path, conds, out)
				continue
			}
			target := v.fragmentType(parent, "", sel.TypeCondition, sel.Position, path)
			if target == nil {
				continue
			}
			v.selectionSet(target, sel.SelectionSet, path, appendCondition(conds, target.Name), out)

		case *language.FragmentSpread:
			if !v.shouldInclude(sel.Directives) {
				continue
			}
			def := v.doc.Fragments.ForName(sel.Name)
			if def == nil {
				v.report(locationOf(sel.Position), path, "Unknown fragment %q.", sel.Name)
				continue
			}
			if v.spreading[sel.Name] {
				v.report(locationOf(sel.Position), path, "Cannot spread fragment %q within itself.", sel.Name)
				continue
			}
			if !v.shouldInclude(def.Directives) {
				continue
			}
			target := v.fragmentType(parent, sel.Name, def.TypeCondition, sel.Position, path)
			if target == nil {
				continue
			}
			v.spreading[sel.Name] = true
			v.selectionSet(target, def.SelectionSet, path, appendCondition(conds, target.Name), out)
			delete(v.spreading, sel.Name)
		}
	}
}

// fragmentType resolves a fragment's type condition and checks that it can
// apply to parent. It returns nil after reporting when it cannot.
func (v *validator) fragmentType(parent *schema.Type, fragment, condition string, pos *language.Position, path response.Path) *schema.Type {
	loc := locationOf(pos)
	t := v.schema.ResolveType(condition)
	if t == nil {
		v.report(loc, path, "Unknown type %q.", condition)
		return nil
	}
	subject := "Fragment"
	if fragment != "" {
		subject = "Fragment \"" + fragment + "\""
	}
	if !t.IsComposite() {
		v.report(loc, path, "%s cannot condition on non composite type %q.", subject, condition)
		return nil
	}
	if !v.schema.Overlaps(parent.Name, t.Name) {
		v.report(loc, path, "%s cannot be spread here as objects of type %q can never be of type %q.", subject, parent.Name, t.Name)
		return nil
	}
	return t
}

func appendCondition(conds []string, name string) []string {
	out := make([]string, len(conds), len(conds)+1)
	copy(out, conds)
	return append(out, name)
}

func (v *validator) field(parent *schema.Type, sel *language.Field, path response.Path, conds []string) *Selection {
	responseName := sel.Alias
	if responseName == "" {
		responseName = sel.Name
	}
	node := &Selection{
		ResponseName: responseName,
		Name:         sel.Name,
		ParentType:   parent,
		Conditions:   conds,
		Position:     locationOf(sel.Position),
		Path:         path.Append(responseName),
	}
	if sel.Alias != sel.Name {
		node.Alias = sel.Alias
	}
	if len(conds) > 0 {
		node.TypeCondition = conds[len(conds)-1]
	}

	if sel.Name == TypenameField.Name {
		node.Field = TypenameField
		node.Arguments = map[string]any{}
		if len(sel.SelectionSet) > 0 {
			v.report(node.Position, node.Path, "Field %q must not have a selection since type %q has no subfields.", sel.Name, "String!")
			node.Invalid = true
		}
		return node
	}

	def := parent.Field(sel.Name)
	if def == nil {
		v.report(node.Position, node.Path, "Cannot query field %q on type %q.", sel.Name, parent.Name)
		return node
	}
	node.Field = def
	node.Arguments = v.arguments(parent, def, sel, node)

	named := v.schema.ResolveType(def.Type.GetNamedType())
	if named == nil {
		node.Invalid = true
		return node
	}
	if named.IsLeaf() {
		if len(sel.SelectionSet) > 0 {
			v.report(node.Position, node.Path, "Field %q must not have a selection since type %q has no subfields.", sel.Name, def.Type.String())
			node.Invalid = true
		}
		return node
	}
	if len(sel.SelectionSet) == 0 {
		v.report(node.Position, node.Path, "Field %q of type %q must have a selection of subfields. Did you mean \"%s { ... }\"?", sel.Name, def.Type.String(), sel.Name)
		node.Invalid = true
		return node
	}
	v.selectionSet(named, sel.SelectionSet, node.Path, nil, &node.Children)
	v.checkOverlaps(node.Children)
	return node
}

// shouldInclude evaluates @skip and @include. Unknown directives are
// reported but do not exclude the node.
func (v *validator) shouldInclude(directives language.DirectiveList) bool {
	include := true
	for _, d := range directives {
		if v.schema.Directives[d.Name] == nil {
			v.report(locationOf(d.Position), nil, "Unknown directive \"@%s\".", d.Name)
			continue
		}
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		arg := d.Arguments.ForName("if")
		if arg == nil {
			v.report(locationOf(d.Position), nil, "Directive \"@%s\" argument \"if\" of type \"Boolean!\" is required, but it was not provided.", d.Name)
			continue
		}
		cond, ok := language.ValueToGo(arg.Value, v.variables).(bool)
		if !ok {
			continue
		}
		if d.Name == "skip" && cond {
			include = false
		}
		if d.Name == "include" && !cond {
			include = false
		}
	}
	return include
}
