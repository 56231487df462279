package normalize

import (
	"regexp"
	"strings"

	"github.com/sells-group/crm-cleanup/internal/model"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// DefaultPersonalDomains is the set of consumer webmail domains.
var DefaultPersonalDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"ymail.com",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"msn.com",
	"aol.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"comcast.net",
	"att.net",
	"sbcglobal.net",
	"verizon.net",
	"cox.net",
	"charter.net",
	"protonmail.com",
	"proton.me",
	"gmx.com",
	"mail.com",
}

var personalDomainSet = lowerSet(DefaultPersonalDomains)

// ExtractEmails returns every email-shaped value on the record, lower-cased
// and de-duplicated. Known email columns are scanned first, then every other
// non-reserved column.
func ExtractEmails(rec *model.Record) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(value string) {
		for _, m := range emailRe.FindAllString(value, -1) {
			e := strings.ToLower(strings.TrimSpace(m))
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}

	scanned := make(map[string]struct{}, len(EmailFields))
	for _, f := range EmailFields {
		scanned[f] = struct{}{}
		add(rec.Get(f))
	}
	for _, f := range rec.Fields() {
		if _, ok := scanned[f]; ok || model.IsReservedField(f) {
			continue
		}
		add(rec.Get(f))
	}
	return out
}

// NormalizeEmail reduces an address to its matching form: lower-cased, with
// any +alias removed and dots and trailing digits stripped from the local
// part. Only used for duplicate matching, never for display.
func NormalizeEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(e, "@")
	if at < 0 {
		return e
	}
	local, domain := e[:at], e[at+1:]

	if i := strings.Index(local, "+"); i >= 0 {
		local = local[:i]
	}
	local = strings.ReplaceAll(local, ".", "")
	if trimmed := strings.TrimRight(local, "0123456789"); trimmed != "" {
		local = trimmed
	}
	return local + "@" + domain
}

// EmailDomain returns the lower-cased domain of an address, or "".
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// EmailLocal returns the lower-cased local part of an address.
func EmailLocal(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(strings.TrimSpace(email))
	}
	return strings.ToLower(strings.TrimSpace(email[:at]))
}

// IsPersonalDomain reports whether domain is a consumer webmail domain.
func IsPersonalDomain(domain string) bool {
	_, ok := personalDomainSet[strings.ToLower(domain)]
	return ok
}
