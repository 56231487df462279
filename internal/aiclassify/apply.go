package aiclassify

import (
	"github.com/sells-group/crm-cleanup/internal/engine"
	"github.com/sells-group/crm-cleanup/internal/model"
)

// Apply writes suggestions into res through eng, then refreshes Changes Made
// and the stats. It returns how many records changed.
func Apply(eng *engine.Engine, res *engine.Result, suggestions []Suggestion) int {
	byID := make(map[int]*model.Record, len(res.Records))
	for _, rec := range res.Records {
		byID[rec.ID] = rec
	}

	changed := 0
	for _, s := range suggestions {
		rec, ok := byID[s.RecordID]
		if !ok {
			continue
		}
		if eng.ApplyCategory(res, rec, s.Category, s.Reason) {
			changed++
		}
	}
	if changed > 0 {
		eng.Finalize(res)
	}
	return changed
}
