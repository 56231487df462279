package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/crm-cleanup/internal/model"
)

// fold removes diacritics so "José" and "Jose" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanNamePart lower-cases a name fragment, folds diacritics, turns hyphens
// into spaces, drops other punctuation and collapses whitespace.
func CleanNamePart(s string) string {
	s = strings.ToLower(fold(strings.TrimSpace(s)))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalName returns "first last" in cleaned form, or "" unless both
// parts survive cleaning. Records without both parts cannot anchor
// name-based matching.
func CanonicalName(first, last string) string {
	f := CleanNamePart(first)
	l := CleanNamePart(last)
	if f == "" || l == "" {
		return ""
	}
	return f + " " + l
}

// FirstName returns the record's first name, falling back to the first word
// of a full-name column.
func FirstName(rec *model.Record) string {
	if v := FirstValue(rec, FirstNameFields...); v != "" {
		return v
	}
	if FirstValue(rec, LastNameFields...) != "" {
		return ""
	}
	parts := strings.Fields(FirstValue(rec, FullNameFields...))
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// LastName returns the record's last name, falling back to the last word of
// a full-name column.
func LastName(rec *model.Record) string {
	if v := FirstValue(rec, LastNameFields...); v != "" {
		return v
	}
	if FirstValue(rec, FirstNameFields...) != "" {
		return ""
	}
	parts := strings.Fields(FirstValue(rec, FullNameFields...))
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// DisplayName renders a record's name for audit notes.
func DisplayName(rec *model.Record) string {
	name := strings.TrimSpace(FirstName(rec) + " " + LastName(rec))
	if name == "" {
		return "#" + strconv.Itoa(rec.ID)
	}
	return cases.Title(language.English).String(strings.ToLower(name))
}

// FirstValue returns the first non-empty trimmed value among fields.
func FirstValue(rec *model.Record, fields ...string) string {
	for _, f := range fields {
		if v := strings.TrimSpace(rec.Get(f)); v != "" {
			return v
		}
	}
	return ""
}

// Identify derives the normalized identity of a record.
func Identify(rec *model.Record) model.Identity {
	return model.Identity{
		CanonicalName: CanonicalName(FirstName(rec), LastName(rec)),
		Emails:        ExtractEmails(rec),
		Phones:        ExtractPhones(rec),
	}
}
