package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/model"
)

func rec(fields map[string]string) *model.Record {
	return model.RecordFromMap(0, fields)
}

func TestAssign_AgentFromNone(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Tags": "VIP"})
	p := Assign(r, classify.Result{Category: model.CategoryAgent})
	r.Apply(p)

	assert.Equal(t, "Agents", r.Get(model.FieldGroups))
	assert.Equal(t, "VIP, Group: None to Agents", r.Get(model.FieldTags))
	require.Len(t, p.Changes, 2)
	assert.Equal(t, "Group: None to Agents", p.Changes[0].Reason)
	assert.True(t, p.Changes[1].Quiet)
}

func TestAssign_PastClientExclusive(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Agents, Sphere of Influence, Past Client"})
	p := Assign(r, classify.Result{Category: model.CategoryContact, PastClient: true})
	r.Apply(p)

	assert.Equal(t, "Past Clients, Sphere of Influence", r.Get(model.FieldGroups))
	assert.Contains(t, r.Get(model.FieldTags), "Group: Agents/Sphere of Influence/Past Client to Past Clients/Sphere of Influence")
}

func TestAssign_CustomGroupsPreserved(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Golf Buddies ::: Vendors"})
	r.Apply(Assign(r, classify.Result{Category: model.CategoryVendor}))
	assert.Equal(t, "Vendors, Golf Buddies", r.Get(model.FieldGroups))
}

func TestAssign_UnchangedSetIsEmpty(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Sphere, Agents"})
	p := Assign(r, classify.Result{Category: model.CategoryAgent})
	assert.True(t, p.Empty())
	assert.Equal(t, "Sphere, Agents", r.Get(model.FieldGroups))
}

func TestAssign_Leads(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Email": "x@gmail.com"})
	r.Apply(Assign(r, classify.Result{Category: model.CategoryContact, PersonalOnly: true}))
	assert.Equal(t, "Leads", r.Get(model.FieldGroups))
	assert.Equal(t, "Group: None to Leads", r.Get(model.FieldTags))
}

func TestAssign_NoLeadsWithCustomGroup(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Neighbors"})
	assert.True(t, Assign(r, classify.Result{Category: model.CategoryContact, PersonalOnly: true}).Empty())
}

func TestAssign_ContactLosesStaleManagedGroup(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Agents"})
	r.Apply(Assign(r, classify.Result{Category: model.CategoryContact}))
	assert.Equal(t, "", r.Get(model.FieldGroups))
	assert.Equal(t, "Group: Agents to None", r.Get(model.FieldTags))
}

func TestAssign_Idempotent(t *testing.T) {
	t.Parallel()

	r := rec(map[string]string{"Groups": "Friends"})
	res := classify.Result{Category: model.CategoryAgent}
	r.Apply(Assign(r, res))
	assert.True(t, Assign(r, res).Empty())
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "None", Label(nil))
	assert.Equal(t, "Agents/Golf", Label([]string{"Agents", "Golf"}))
}
