package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_PadsAndTruncates(t *testing.T) {
	t.Parallel()

	r := NewRecord(3, []string{"First Name", "Last Name", "Email"}, []string{"John", "Smith"})
	assert.Equal(t, 3, r.ID)
	assert.Equal(t, SourcePrimary, r.Source)
	assert.Equal(t, []string{"First Name", "Last Name", "Email"}, r.Fields())
	assert.Equal(t, "", r.Get("Email"))
	assert.True(t, r.Has("Email"))
	assert.True(t, r.IsEmpty("Email"))

	r2 := NewRecord(0, []string{"A"}, []string{"1", "2"})
	assert.Equal(t, 1, r2.Len())
}

func TestRecord_SetKeepsOrder(t *testing.T) {
	t.Parallel()

	r := RecordFromMap(0, map[string]string{"b": "2", "a": "1", "z": "26"}, "z")
	assert.Equal(t, []string{"z", "a", "b"}, r.Fields())

	r.Set("a", "one")
	r.Set("c", "3")
	assert.Equal(t, []string{"z", "a", "b", "c"}, r.Fields())
	assert.Equal(t, "one", r.Get("a"))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	t.Parallel()

	r := RecordFromMap(1, map[string]string{"Email": "a@b.com"})
	r.Source = SourcePhoneExport
	c := r.Clone()
	c.Set("Email", "x@y.com")
	c.Set("Phone", "5551234567")

	assert.Equal(t, "a@b.com", r.Get("Email"))
	assert.False(t, r.Has("Phone"))
	assert.Equal(t, SourcePhoneExport, c.Source)
}

func TestRecord_NilSafeGetters(t *testing.T) {
	t.Parallel()

	var r *Record
	assert.Equal(t, "", r.Get("x"))
	assert.False(t, r.Has("x"))
}

func TestRecord_Apply(t *testing.T) {
	t.Parallel()

	r := RecordFromMap(0, map[string]string{"Company": ""})
	var p Patch
	p.Set("Company", "", "Acme", "Added Company")
	p.SetQuiet("Category", "", "Contact")
	r.Apply(p)

	require.Equal(t, "Acme", r.Get("Company"))
	assert.Equal(t, "Contact", r.Get("Category"))
}

func TestSource_Rank(t *testing.T) {
	t.Parallel()

	assert.Greater(t, SourcePrimary.Rank(), SourcePhoneExport.Rank())
	assert.Equal(t, SourcePrimary.Rank(), Source("").Rank())
}

func TestIsReservedField(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"Tags", "Groups", "Category", "Changes Made", " Tags "} {
		assert.True(t, IsReservedField(f), f)
	}
	assert.False(t, IsReservedField("Email"))
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Agent", CategoryAgent, true},
		{" vendors ", CategoryVendor, true},
		{"contact", CategoryContact, true},
		{"null", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
