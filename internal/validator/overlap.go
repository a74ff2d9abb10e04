package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
)

// checkOverlaps reports selections sharing a response name that cannot be
// merged into one value. The later selection of a conflicting pair is
// marked invalid and produces no data.
func (v *validator) checkOverlaps(nodes []*Selection) {
	seen := make(map[string][]*Selection)
	for _, b := range nodes {
		if !b.Valid() {
			continue
		}
		for _, a := range seen[b.ResponseName] {
			if reasons := v.conflictReasons(a, b); len(reasons) > 0 {
				v.reportConflict(a, b, reasons)
				b.Invalid = true
				break
			}
		}
		if !b.Invalid {
			seen[b.ResponseName] = append(seen[b.ResponseName], b)
		}
	}
}

func (v *validator) conflictReasons(a, b *Selection) []string {
	// Distinct object parents never apply to the same value, so only the
	// shape of what they return has to agree.
	exclusive := a.ParentType != b.ParentType &&
		a.ParentType.Kind == schema.TypeKindObject &&
		b.ParentType.Kind == schema.TypeKindObject

	if !exclusive {
		if a.Name != b.Name {
			return []string{fmt.Sprintf("%s and %s are different fields", a.Name, b.Name)}
		}
		if !reflect.DeepEqual(a.Arguments, b.Arguments) {
			return []string{"they have differing arguments"}
		}
	}
	if !v.sameShape(a.Field.Type, b.Field.Type) {
		return []string{fmt.Sprintf("they return conflicting types %s and %s", a.Field.Type, b.Field.Type)}
	}

	var reasons []string
	for _, bc := range b.Children {
		if !bc.Valid() {
			continue
		}
		for _, ac := range a.Children {
			if !ac.Valid() || ac.ResponseName != bc.ResponseName {
				continue
			}
			if sub := v.conflictReasons(ac, bc); len(sub) > 0 {
				reasons = append(reasons, fmt.Sprintf("subfields %q conflict because %s", bc.ResponseName, strings.Join(sub, " and ")))
				break
			}
		}
	}
	return reasons
}

// sameShape compares list and non-null wrapping; leaf types must match by
// name while composite types may differ.
func (v *validator) sameShape(a, b *schema.TypeRef) bool {
	for {
		if a.Kind != b.Kind {
			return false
		}
		if a.Kind == schema.TypeRefKindNamed {
			break
		}
		a, b = a.OfType, b.OfType
	}
	if a.Named == b.Named {
		return true
	}
	ta, tb := v.schema.ResolveType(a.Named), v.schema.ResolveType(b.Named)
	return ta != nil && tb != nil && !ta.IsLeaf() && !tb.IsLeaf()
}

func (v *validator) reportConflict(a, b *Selection, reasons []string) {
	msg := fmt.Sprintf("Fields %q conflict because %s. Use different aliases on the fields to fetch both if this was intentional.",
		a.ResponseName, strings.Join(reasons, " and "))
	key := fmt.Sprintf("%d:%d:%s", b.Position.Line, b.Position.Column, msg)
	if v.reported[key] {
		return
	}
	v.reported[key] = true
	err := response.Errorf(a.Position, b.Path, "%s", msg)
	if b.Position.Line > 0 {
		err.Locations = append(err.Locations, b.Position)
	}
	v.errors = append(v.errors, err)
}
