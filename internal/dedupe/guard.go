package dedupe

import (
	"strings"

	"github.com/sells-group/crm-cleanup/internal/matchkey"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// nicknames maps common short forms to their formal first name. Lookups are
// on cleaned, lower-case names.
var nicknames = map[string]string{
	"abby":   "abigail",
	"al":     "albert",
	"alex":   "alexander",
	"andy":   "andrew",
	"beth":   "elizabeth",
	"betty":  "elizabeth",
	"bill":   "william",
	"billy":  "william",
	"bob":    "robert",
	"bobby":  "robert",
	"cathy":  "catherine",
	"chris":  "christopher",
	"chuck":  "charles",
	"dan":    "daniel",
	"danny":  "daniel",
	"dave":   "david",
	"deb":    "deborah",
	"debbie": "deborah",
	"dick":   "richard",
	"don":    "donald",
	"ed":     "edward",
	"eddie":  "edward",
	"fred":   "frederick",
	"greg":   "gregory",
	"jake":   "jacob",
	"jeff":   "jeffrey",
	"jen":    "jennifer",
	"jenny":  "jennifer",
	"jim":    "james",
	"jimmy":  "james",
	"joe":    "joseph",
	"joey":   "joseph",
	"johnny": "john",
	"jon":    "jonathan",
	"kate":   "katherine",
	"kathy":  "katherine",
	"katie":  "katherine",
	"ken":    "kenneth",
	"kim":    "kimberly",
	"larry":  "lawrence",
	"liz":    "elizabeth",
	"matt":   "matthew",
	"meg":    "margaret",
	"mike":   "michael",
	"nick":   "nicholas",
	"pam":    "pamela",
	"pat":    "patricia",
	"peggy":  "margaret",
	"pete":   "peter",
	"rich":   "richard",
	"rick":   "richard",
	"rob":    "robert",
	"ron":    "ronald",
	"sam":    "samuel",
	"steve":  "steven",
	"sue":    "susan",
	"ted":    "theodore",
	"tim":    "timothy",
	"tom":    "thomas",
	"tony":   "anthony",
	"vicky":  "victoria",
	"will":   "william",
}

func formalName(name string) string {
	if f, ok := nicknames[name]; ok {
		return f
	}
	return name
}

// sameFirstName reports whether two cleaned first names plausibly belong to
// the same person: equal, equal first word, nickname of one another, or one
// is a bare initial of the other.
func sameFirstName(a, b string) bool {
	if a == b {
		return true
	}
	fa, fb := firstWord(a), firstWord(b)
	if fa == fb {
		return true
	}
	if formalName(fa) == formalName(fb) {
		return true
	}
	if len(fa) == 1 || len(fb) == 1 {
		return fa[0] == fb[0]
	}
	return false
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

// differentPeople applies the different-name guard to two records that
// collided on key kind k. Name-based collisions always pass.
func differentPeople(existing, incoming *model.Record, k matchkey.Kind) bool {
	if k.NameBased() {
		return false
	}
	a := normalize.CleanNamePart(normalize.FirstName(existing))
	b := normalize.CleanNamePart(normalize.FirstName(incoming))
	if a == "" || b == "" {
		return false
	}
	return !sameFirstName(a, b)
}

// sameFamily reports whether both records carry the same non-empty last name.
func sameFamily(a, b *model.Record) bool {
	la := normalize.CleanNamePart(normalize.LastName(a))
	lb := normalize.CleanNamePart(normalize.LastName(b))
	return la != "" && la == lb
}
