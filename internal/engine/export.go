package engine

import (
	"strconv"
	"strings"

	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// ExportOptions selects which records are written out.
type ExportOptions struct {
	// ChangedOnly keeps changed records, merged masters and records with an
	// anniversary or closed-date tag, one row per identity key.
	ChangedOnly bool
}

// milestoneMarkers flag tags that always qualify a record for a
// changed-only export.
var milestoneMarkers = []string{"anniversary", "closed"}

// ExportRecords returns the records to write. The full export is every
// record, duplicates included, in input order.
func ExportRecords(records []*model.Record, opts ExportOptions) []*model.Record {
	if !opts.ChangedOnly {
		return records
	}

	out := make([]*model.Record, 0, len(records))
	index := make(map[string]int)
	for _, rec := range records {
		if !exportable(rec) {
			continue
		}
		key := IdentityKey(rec)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		if isMaster(rec) && !isMaster(out[i]) {
			out[i] = rec
		}
	}
	return out
}

func exportable(rec *model.Record) bool {
	if cm := rec.Get(model.FieldChangesMade); cm != "" && cm != model.NoChanges {
		return true
	}
	if isMaster(rec) {
		return true
	}
	for _, t := range merge.SplitList(rec.Get(model.FieldTags)) {
		lt := strings.ToLower(t)
		for _, m := range milestoneMarkers {
			if strings.Contains(lt, m) {
				return true
			}
		}
	}
	return false
}

func isMaster(rec *model.Record) bool {
	return merge.ContainsTag(rec.Get(model.FieldTags), model.TagMerged)
}

// IdentityKey is the stable per-record export key: the lower-cased first and
// last name, or "#<id>" for a record without a name.
func IdentityKey(rec *model.Record) string {
	first := strings.ToLower(strings.TrimSpace(normalize.FirstName(rec)))
	last := strings.ToLower(strings.TrimSpace(normalize.LastName(rec)))
	if first == "" && last == "" {
		return "#" + strconv.Itoa(rec.ID)
	}
	return first + " " + last
}

// outputFields are appended to every export header in this order.
var outputFields = []string{model.FieldCategory, model.FieldTags, model.FieldGroups, model.FieldChangesMade}

// Columns returns the union of field names across records in first-seen
// order, with the engine's output fields last.
func Columns(records []*model.Record) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, f := range outputFields {
		seen[f] = struct{}{}
	}
	for _, rec := range records {
		for _, f := range rec.Fields() {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			cols = append(cols, f)
		}
	}
	return append(cols, outputFields...)
}
