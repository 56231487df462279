// Package matchkey derives the lookup keys used to detect that two contact
// records refer to the same person.
package matchkey

import (
	"strings"

	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// Kind tags the evidence a key is built from.
type Kind string

const (
	KindEmail     Kind = "email"
	KindPhone     Kind = "phone"
	KindName      Kind = "name"
	KindNameEmail Kind = "name-email"
	KindNamePhone Kind = "name-phone"
)

// Channel reports whether a key of this kind carries an email or phone.
func (k Kind) Channel() bool {
	return k != KindName
}

// NameBased reports whether a key of this kind includes the canonical name.
// A collision on such a key implies an exact full-name match.
func (k Kind) NameBased() bool {
	return k == KindName || k == KindNameEmail || k == KindNamePhone
}

// Key is a tagged lookup key.
type Key struct {
	Kind  Kind
	Parts []string
}

// String renders "<kind>|<value...>".
func (k Key) String() string {
	return string(k.Kind) + "|" + strings.Join(k.Parts, "|")
}

// Generate returns the record's keys in priority order: emails, phones, the
// canonical name, then name+email and name+phone combinations. Components
// that are empty produce no key.
func Generate(id model.Identity) []Key {
	emails := make([]string, 0, len(id.Emails))
	seen := make(map[string]struct{}, len(id.Emails))
	for _, e := range id.Emails {
		n := normalize.NormalizeEmail(e)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		emails = append(emails, n)
	}

	keys := make([]Key, 0, len(emails)*2+len(id.Phones)*2+1)
	for _, e := range emails {
		keys = append(keys, Key{Kind: KindEmail, Parts: []string{e}})
	}
	for _, p := range id.Phones {
		if p == "" {
			continue
		}
		keys = append(keys, Key{Kind: KindPhone, Parts: []string{p}})
	}

	name := id.CanonicalName
	if name == "" {
		return keys
	}
	keys = append(keys, Key{Kind: KindName, Parts: []string{name}})
	for _, e := range emails {
		keys = append(keys, Key{Kind: KindNameEmail, Parts: []string{name, e}})
	}
	for _, p := range id.Phones {
		if p == "" {
			continue
		}
		keys = append(keys, Key{Kind: KindNamePhone, Parts: []string{name, p}})
	}
	return keys
}

// ForRecord normalizes rec and generates its keys.
func ForRecord(rec *model.Record) ([]Key, model.Identity) {
	id := normalize.Identify(rec)
	return Generate(id), id
}
