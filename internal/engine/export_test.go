package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/model"
)

func TestExportRecords_Full(t *testing.T) {
	t.Parallel()

	recs := fixture()
	_, err := newEngine().Run(context.Background(), recs)
	require.NoError(t, err)

	assert.Len(t, ExportRecords(recs, ExportOptions{}), len(recs))
}

func TestExportRecords_ChangedOnly(t *testing.T) {
	t.Parallel()

	recs := fixture()
	_, err := newEngine().Run(context.Background(), recs)
	require.NoError(t, err)

	out := ExportRecords(recs, ExportOptions{ChangedOnly: true})
	ids := make([]int, len(out))
	for i, r := range out {
		ids[i] = r.ID
	}
	// John Smith's duplicate collapses into the master; the untouched record is dropped.
	assert.Equal(t, []int{0, 2, 3, 4, 5, 6}, ids)
}

func TestExportRecords_PrefersMasterForSameIdentity(t *testing.T) {
	t.Parallel()

	dup := model.RecordFromMap(0, map[string]string{
		"First": "Al", "Last": "Ray", model.FieldTags: model.TagDuplicate, model.FieldChangesMade: "Tagged CRMDuplicate",
	})
	master := model.RecordFromMap(1, map[string]string{
		"First": "al", "Last": "RAY", model.FieldTags: model.TagMerged, model.FieldChangesMade: model.NoChanges,
	})

	out := ExportRecords([]*model.Record{dup, master}, ExportOptions{ChangedOnly: true})
	require.Len(t, out, 1)
	assert.Same(t, master, out[0])
}

func TestExportRecords_MilestoneTags(t *testing.T) {
	t.Parallel()

	recs := []*model.Record{
		model.RecordFromMap(0, map[string]string{"First": "A", "Last": "B", model.FieldTags: "Home Anniversary 2020", model.FieldChangesMade: model.NoChanges}),
		model.RecordFromMap(1, map[string]string{"First": "C", "Last": "D", model.FieldTags: "Closed 2021-05", model.FieldChangesMade: model.NoChanges}),
		model.RecordFromMap(2, map[string]string{"First": "E", "Last": "F", model.FieldTags: "VIP", model.FieldChangesMade: model.NoChanges}),
	}
	out := ExportRecords(recs, ExportOptions{ChangedOnly: true})
	assert.Len(t, out, 2)
}

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ann lee", IdentityKey(model.RecordFromMap(0, map[string]string{"First Name": "Ann", "Last Name": "Lee"})))
	assert.Equal(t, "#7", IdentityKey(model.RecordFromMap(7, map[string]string{"Email": "x@y.com"})))
}

func TestColumns(t *testing.T) {
	t.Parallel()

	a := model.NewRecord(0, []string{"First", "Tags", "Email"}, []string{"A", "", "a@b.com"})
	b := model.NewRecord(1, []string{"First", "Phone"}, []string{"B", "1"})
	assert.Equal(t, []string{"First", "Email", "Phone", "Category", "Tags", "Groups", "Changes Made"}, Columns([]*model.Record{a, b}))
}
