package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/model"
)

func TestResult_AuditRows(t *testing.T) {
	t.Parallel()

	recs := fixture()
	res, err := newEngine().Run(context.Background(), recs)
	require.NoError(t, err)

	rows := res.AuditRows("run-1")
	require.NotEmpty(t, rows)

	byRecord := make(map[int][]model.AuditRow)
	for _, r := range rows {
		assert.Equal(t, "run-1", r.RunID)
		byRecord[r.RecordID] = append(byRecord[r.RecordID], r)
	}

	// Unchanged record has no rows.
	assert.Empty(t, byRecord[7])

	// Unnamed record keyed by id.
	agent := byRecord[4]
	require.NotEmpty(t, agent)
	assert.Equal(t, "#4", agent[0].RecordKey)
	assert.Equal(t, model.FieldCategory, agent[0].Field)
	assert.Equal(t, "Agent", agent[0].NewValue)

	// Family note persisted as a field-less row.
	var note *model.AuditRow
	for i, r := range byRecord[3] {
		if r.Field == "" {
			note = &byRecord[3][i]
		}
	}
	require.NotNil(t, note)
	assert.Equal(t, "mike doe", note.RecordKey)
	assert.Contains(t, note.Reason, "Potential family member of Jane Doe")

	// Rows are ordered by record id.
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].RecordID, rows[i].RecordID)
	}
}
