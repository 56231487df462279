package normalize

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/crm-cleanup/internal/model"
)

const (
	minPhoneDigits = 10
	nullPhone      = "0000000000"
	defaultRegion  = "US"
)

var phoneSplitter = strings.NewReplacer(":::", "\n", ";", "\n", ",", "\n", " or ", "\n")

// ExtractPhones returns the digit-only phone numbers on the record. Numbers
// shorter than ten digits are dropped, an 11-digit number with a leading US
// country code loses the 1, and the all-zero sentinel is rejected.
func ExtractPhones(rec *model.Record) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(value string) {
		for _, part := range strings.Split(phoneSplitter.Replace(value), "\n") {
			d := CleanPhone(part)
			if d == "" {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}

	scanned := make(map[string]struct{}, len(PhoneFields))
	for _, f := range PhoneFields {
		scanned[f] = struct{}{}
		add(rec.Get(f))
	}
	for _, f := range rec.Fields() {
		if _, ok := scanned[f]; ok || model.IsReservedField(f) {
			continue
		}
		if strings.Contains(strings.ToLower(f), "phone") {
			add(rec.Get(f))
		}
	}
	return out
}

// CleanPhone strips a single raw phone value to its matching digits, or ""
// when the value is not a usable number.
func CleanPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) < minPhoneDigits {
		return ""
	}
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if d == nullPhone {
		return ""
	}
	return d
}

// FormatPhone renders a digit string in national format for audit text.
// Numbers the phone library cannot validate are returned unchanged.
func FormatPhone(digits string) string {
	num, err := phonenumbers.Parse(digits, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return digits
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}
