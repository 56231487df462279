package engine

import "github.com/sells-group/crm-cleanup/internal/model"

// AuditRows flattens the run's audit log for persistence. Every change,
// quiet ones included, becomes one row; notes become rows with no field.
func (r *Result) AuditRows(runID string) []model.AuditRow {
	byID := make(map[int]*model.Record, len(r.Records))
	for _, rec := range r.Records {
		byID[rec.ID] = rec
	}

	var rows []model.AuditRow
	for _, e := range r.Audit.Entries() {
		key := IdentityKey(byID[e.RecordID])
		for _, c := range e.Changes {
			rows = append(rows, model.AuditRow{
				RunID:     runID,
				RecordID:  e.RecordID,
				RecordKey: key,
				Field:     c.Field,
				OldValue:  c.OldValue,
				NewValue:  c.NewValue,
				Reason:    c.Reason,
			})
		}
		for _, n := range e.Notes {
			rows = append(rows, model.AuditRow{RunID: runID, RecordID: e.RecordID, RecordKey: key, Reason: n})
		}
	}
	return rows
}
