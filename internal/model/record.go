package model

import (
	"sort"
	"strings"
)

// Reserved field names written by the engine.
const (
	FieldTags        = "Tags"
	FieldGroups      = "Groups"
	FieldCategory    = "Category"
	FieldChangesMade = "Changes Made"
)

// Reserved tags.
const (
	TagMerged    = "CRMMERGED"
	TagDuplicate = "CRMDuplicate"
)

// NoChanges is the Changes Made sentinel for an unmodified record.
const NoChanges = "No changes made"

// IsReservedField reports whether name is one of the engine-owned output fields.
func IsReservedField(name string) bool {
	switch strings.TrimSpace(name) {
	case FieldTags, FieldGroups, FieldCategory, FieldChangesMade:
		return true
	}
	return false
}

// Source identifies which kind of export a record came from.
type Source string

const (
	// SourcePrimary is the main contact system export.
	SourcePrimary Source = "primary"
	// SourcePhoneExport is a secondary phone-only export (address book dump).
	SourcePhoneExport Source = "phone_export"
)

// Rank orders sources for master selection; higher wins.
func (s Source) Rank() int {
	if s == SourcePhoneExport {
		return 1
	}
	return 2
}

// Record is an ordered mapping from field name to string value.
// Field names vary by source; order follows first insertion.
type Record struct {
	ID     int
	Source Source
	File   string

	keys   []string
	values map[string]string
}

// NewRecord builds a record from parallel header/value slices. Missing values
// become empty strings, surplus values are dropped.
func NewRecord(id int, header, values []string) *Record {
	r := &Record{ID: id, Source: SourcePrimary, values: make(map[string]string, len(header))}
	for i, h := range header {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(h, v)
	}
	return r
}

// RecordFromMap builds a record from a map. Keys are inserted in the order
// given by order; keys of m missing from order are appended in sorted order.
func RecordFromMap(id int, m map[string]string, order ...string) *Record {
	r := &Record{ID: id, Source: SourcePrimary, values: make(map[string]string, len(m))}
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// Get returns the value of field name, or "" if absent.
func (r *Record) Get(name string) string {
	if r == nil || r.values == nil {
		return ""
	}
	return r.values[name]
}

// Has reports whether field name is present (possibly empty).
func (r *Record) Has(name string) bool {
	if r == nil || r.values == nil {
		return false
	}
	_, ok := r.values[name]
	return ok
}

// IsEmpty reports whether field name is absent or whitespace-only.
func (r *Record) IsEmpty(name string) bool {
	return strings.TrimSpace(r.Get(name)) == ""
}

// Set assigns a field, appending it to the field order if new.
func (r *Record) Set(name, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Fields returns field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		ID:     r.ID,
		Source: r.Source,
		File:   r.File,
		keys:   make([]string, len(r.keys)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map returns a copy of the field values.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Apply writes every change of p onto the record in order.
func (r *Record) Apply(p Patch) {
	for _, c := range p.Changes {
		r.Set(c.Field, c.NewValue)
	}
}
