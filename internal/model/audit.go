package model

import (
	"sort"
	"strings"
)

// Change records a single field modification made by a pipeline stage.
type Change struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Reason   string `json:"reason"`

	// Quiet changes are applied but not reported in Changes Made.
	Quiet bool `json:"-"`
}

// Patch is an ordered set of field changes plus free-text audit notes
// produced by one stage for one record. Stages return patches; the engine
// applies them.
type Patch struct {
	Changes []Change `json:"changes,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// Set appends a reported change.
func (p *Patch) Set(field, oldValue, newValue, reason string) {
	p.Changes = append(p.Changes, Change{Field: field, OldValue: oldValue, NewValue: newValue, Reason: reason})
}

// SetQuiet appends a change that is applied but left out of Changes Made.
func (p *Patch) SetQuiet(field, oldValue, newValue string) {
	p.Changes = append(p.Changes, Change{Field: field, OldValue: oldValue, NewValue: newValue, Quiet: true})
}

// Note appends an audit note that does not modify any field.
func (p *Patch) Note(note string) {
	p.Notes = append(p.Notes, note)
}

// Empty reports whether the patch carries neither changes nor notes.
func (p Patch) Empty() bool {
	return len(p.Changes) == 0 && len(p.Notes) == 0
}

// Extend appends all changes and notes of o.
func (p *Patch) Extend(o Patch) {
	p.Changes = append(p.Changes, o.Changes...)
	p.Notes = append(p.Notes, o.Notes...)
}

// AuditEntry is the accumulated audit trail for one record.
type AuditEntry struct {
	RecordID int      `json:"record_id"`
	Changes  []Change `json:"changes"`
	Notes    []string `json:"notes"`
}

// Reported returns the human-readable lines for Changes Made.
func (e *AuditEntry) Reported() []string {
	var out []string
	for _, c := range e.Changes {
		if c.Quiet {
			continue
		}
		if c.Reason != "" {
			out = append(out, c.Reason)
			continue
		}
		out = append(out, "Set "+c.Field)
	}
	return append(out, e.Notes...)
}

// AuditLog is a side-table of audit entries keyed by record ID.
type AuditLog struct {
	entries map[int]*AuditEntry
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{entries: make(map[int]*AuditEntry)}
}

// Record appends the contents of p to the entry for recordID.
func (a *AuditLog) Record(recordID int, p Patch) {
	if p.Empty() {
		return
	}
	e, ok := a.entries[recordID]
	if !ok {
		e = &AuditEntry{RecordID: recordID}
		a.entries[recordID] = e
	}
	e.Changes = append(e.Changes, p.Changes...)
	e.Notes = append(e.Notes, p.Notes...)
}

// Entry returns the audit entry for recordID, or nil.
func (a *AuditLog) Entry(recordID int) *AuditEntry {
	return a.entries[recordID]
}

// Changed reports whether recordID has at least one reported change or note.
func (a *AuditLog) Changed(recordID int) bool {
	e := a.entries[recordID]
	return e != nil && len(e.Reported()) > 0
}

// ChangesMade renders the semicolon-joined audit trail for recordID, or
// NoChanges when nothing was reported.
func (a *AuditLog) ChangesMade(recordID int) string {
	e := a.entries[recordID]
	if e == nil {
		return NoChanges
	}
	lines := e.Reported()
	if len(lines) == 0 {
		return NoChanges
	}
	return strings.Join(lines, "; ")
}

// Entries returns all entries ordered by record ID.
func (a *AuditLog) Entries() []*AuditEntry {
	out := make([]*AuditEntry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out
}

// Len returns the number of records with an entry.
func (a *AuditLog) Len() int {
	return len(a.entries)
}
