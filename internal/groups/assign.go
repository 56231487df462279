// Package groups buckets classified contacts into CRM groups and records a
// transition tag whenever a record's groups change.
package groups

import (
	"sort"
	"strings"

	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
)

// TransitionPrefix starts every group transition tag.
const TransitionPrefix = "Group: "

var managed = map[string]struct{}{
	strings.ToLower(model.GroupAgents):      {},
	strings.ToLower(model.GroupVendors):     {},
	strings.ToLower(model.GroupPastClients): {},
	strings.ToLower(model.GroupLeads):       {},
	"past client":                           {},
	"agent":                                 {},
	"vendor":                                {},
	"lead":                                  {},
}

// IsManaged reports whether group is one the engine assigns itself.
func IsManaged(group string) bool {
	_, ok := managed[strings.ToLower(strings.TrimSpace(group))]
	return ok
}

// Compute returns the groups rec should carry for res. Custom groups already
// on the record are kept in their original order after the managed group.
func Compute(rec *model.Record, res classify.Result) []string {
	var next []string
	switch {
	case res.PastClient:
		next = append(next, model.GroupPastClients)
	case res.Category == model.CategoryAgent:
		next = append(next, model.GroupAgents)
	case res.Category == model.CategoryVendor:
		next = append(next, model.GroupVendors)
	}
	for _, g := range merge.SplitList(rec.Get(model.FieldGroups)) {
		if !IsManaged(g) && !merge.HasTag(next, g) {
			next = append(next, g)
		}
	}
	if len(next) == 0 && res.PersonalOnly {
		next = append(next, model.GroupLeads)
	}
	return next
}

// Assign returns the patch moving rec to the groups implied by res. The
// patch is empty when the group set is unchanged.
func Assign(rec *model.Record, res classify.Result) model.Patch {
	var p model.Patch

	old := merge.SplitList(rec.Get(model.FieldGroups))
	next := Compute(rec, res)
	if sameSet(old, next) {
		return p
	}

	transition := TransitionPrefix + Label(old) + " to " + Label(next)
	p.Set(model.FieldGroups, rec.Get(model.FieldGroups), merge.JoinList(next), transition)

	tags := rec.Get(model.FieldTags)
	if withTag := merge.AddTag(tags, transition); withTag != tags {
		p.SetQuiet(model.FieldTags, tags, withTag)
	}
	return p
}

// Label renders a group list for a transition tag: "A/B", or "None".
func Label(groups []string) string {
	if len(groups) == 0 {
		return "None"
	}
	return strings.Join(groups, "/")
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	la, lb := lower(a), lower(b)
	sort.Strings(la)
	sort.Strings(lb)
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

func lower(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}
