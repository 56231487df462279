package normalize

import (
	"strings"
	"unicode"

	"github.com/sells-group/crm-cleanup/internal/model"
)

// streetAbbreviations maps long street tokens to USPS short forms.
var streetAbbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"av":        "ave",
	"road":      "rd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"boulevard": "blvd",
	"place":     "pl",
	"circle":    "cir",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"trail":     "trl",
	"way":       "wy",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"apartment": "apt",
	"suite":     "ste",
	"unit":      "unit",
}

// NormalizeAddress reduces a street line to a comparable form. Only the part
// before the first comma is kept, so "123 Main Street, Springfield" and
// "123 Main St." normalize to the same value.
func NormalizeAddress(addr string) string {
	line := addr
	if i := strings.Index(line, ","); i >= 0 {
		line = line[:i]
	}
	line = strings.ToLower(fold(strings.TrimSpace(line)))

	var b strings.Builder
	for _, r := range line {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		if abbr, ok := streetAbbreviations[w]; ok {
			words[i] = abbr
		}
	}
	return strings.Join(words, " ")
}

// ExtractAddresses returns the normalized, de-duplicated street lines found
// in the record's address columns.
func ExtractAddresses(rec *model.Record) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range AddressFields {
		a := NormalizeAddress(rec.Get(f))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
