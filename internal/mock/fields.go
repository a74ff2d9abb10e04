package mock

import (
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

// fieldGroup is every selection sharing one response name.
type fieldGroup struct {
	ResponseName string
	Selections   []*validator.Selection
}

// children concatenates the sub-selections of every selection in the group.
func (g fieldGroup) children() []*validator.Selection {
	if len(g.Selections) == 1 {
		return g.Selections[0].Children
	}
	var out []*validator.Selection
	for _, sel := range g.Selections {
		out = append(out, sel.Children...)
	}
	return out
}

// collectFields groups the valid selections that apply to objectType by
// response name. The first occurrence fixes the position of a group.
func collectFields(sch *schema.Schema, objectType *schema.Type, selections []*validator.Selection) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	for _, sel := range selections {
		if !sel.Valid() || !sel.AppliesTo(sch, objectType.Name) {
			continue
		}
		if i, ok := index[sel.ResponseName]; ok {
			groups[i].Selections = append(groups[i].Selections, sel)
			continue
		}
		index[sel.ResponseName] = len(groups)
		groups = append(groups, fieldGroup{
			ResponseName: sel.ResponseName,
			Selections:   []*validator.Selection{sel},
		})
	}
	return groups
}
