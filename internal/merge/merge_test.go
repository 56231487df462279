package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

func TestPlan_FillsEmptyFieldsOnly(t *testing.T) {
	t.Parallel()

	master := model.RecordFromMap(0, map[string]string{
		"First Name": "Ann",
		"Company":    "",
		"Title":      "Owner",
	}, "First Name", "Company", "Title")
	dup := model.RecordFromMap(1, map[string]string{
		"First Name": "Annie",
		"Company":    "Acme",
		"Title":      "CEO",
		"Birthday":   "1980-01-01",
	})

	plan := New().Plan(master, dup)
	assert.Equal(t, "", master.Get("Company"), "plan does not modify the master")

	master.Apply(plan.Patch)
	assert.Equal(t, "Ann", master.Get("First Name"))
	assert.Equal(t, "Owner", master.Get("Title"))
	assert.Equal(t, "Acme", master.Get("Company"))
	assert.Equal(t, "1980-01-01", master.Get("Birthday"))
}

func TestPlan_EmailAndPhoneSlots(t *testing.T) {
	t.Parallel()

	master := model.RecordFromMap(0, map[string]string{
		"Email":          "a@x.com",
		"Personal Email": "taken@gmail.com",
		"Mobile Phone":   "6502530000",
	})
	dup := model.RecordFromMap(1, map[string]string{
		"Email":      "A@X.com",
		"Work Email": "b@corp.com",
		"Phone":      "+1 (212) 555-0100; 650-253-0000",
	})

	plan := New().Merge(master, dup)
	assert.Equal(t, 1, plan.EmailsAdded)
	assert.Equal(t, 1, plan.PhonesAdded)
	assert.Equal(t, "b@corp.com", master.Get("Work Email"))
	assert.Equal(t, "2125550100", normalize.CleanPhone(master.Get("Phone")))
	assert.Equal(t, "a@x.com", master.Get("Email"))
	assert.Equal(t, "taken@gmail.com", master.Get("Personal Email"))
}

func TestPlan_SlotsExhausted(t *testing.T) {
	t.Parallel()

	e := New(WithEmailSlots("Email"))
	master := model.RecordFromMap(0, map[string]string{"Email": "a@x.com"})
	dup := model.RecordFromMap(1, map[string]string{"Email": "b@x.com"})

	plan := e.Plan(master, dup)
	assert.Zero(t, plan.EmailsAdded)
	assert.True(t, plan.Empty())
}

func TestPlan_UnionsTagsAndGroups(t *testing.T) {
	t.Parallel()

	master := model.RecordFromMap(0, map[string]string{
		model.FieldTags:   "CRMMERGED, VIP",
		model.FieldGroups: "Sphere",
	})
	dup := model.RecordFromMap(1, map[string]string{
		model.FieldTags:   "vip, CRMDuplicate, Anniversary 2019",
		model.FieldGroups: "Sphere ::: Golf",
	})

	New().Merge(master, dup)
	assert.Equal(t, "CRMMERGED, VIP, Anniversary 2019", master.Get(model.FieldTags))
	assert.Equal(t, "Sphere, Golf", master.Get(model.FieldGroups))
}

func TestMerge_NonDestructive(t *testing.T) {
	t.Parallel()

	master := model.RecordFromMap(0, map[string]string{
		"First Name": "John",
		"Last Name":  "Smith",
		"Email":      "john@x.com",
		"Company":    "Acme",
		"Notes":      "",
	})
	dup := model.RecordFromMap(1, map[string]string{
		"First Name": "Jon",
		"Last Name":  "Smyth",
		"Email":      "js@y.com",
		"Company":    "Other",
		"Notes":      "met at open house",
		"Phone":      "6502530000",
	})
	before := master.Map()

	New().Merge(master, dup)
	for f, v := range before {
		if v != "" {
			assert.Equal(t, v, master.Get(f), "field %q overwritten", f)
		}
	}
	assert.Equal(t, "met at open house", master.Get("Notes"))
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	master := model.RecordFromMap(0, map[string]string{"Email": "a@x.com", model.FieldTags: "A"})
	dup := model.RecordFromMap(1, map[string]string{
		"Email":         "b@x.com",
		"Phone":         "6502530000",
		"Company":       "Acme",
		model.FieldTags: "B",
	})

	e := New()
	first := e.Merge(master, dup)
	require.False(t, first.Empty())
	snapshot := master.Map()

	second := e.Merge(master, dup)
	assert.True(t, second.Empty())
	assert.Equal(t, snapshot, master.Map())
}
