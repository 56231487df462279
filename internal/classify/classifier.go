// Package classify scores contact records as real-estate agents, vendors or
// plain contacts using weighted keyword and domain signals.
package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// WebsiteFields lists columns scanned for a business website.
var WebsiteFields = []string{"Website", "Web Page", "Website 1 - Value", "URL", "Homepage"}

// Result is the outcome of classifying one record.
type Result struct {
	Category    model.Category `json:"category"`
	AgentScore  int            `json:"agent_score"`
	VendorScore int            `json:"vendor_score"`

	// ShortCircuit names the direct match that decided the category without
	// scoring, if any.
	ShortCircuit string   `json:"short_circuit,omitempty"`
	Signals      []string `json:"signals,omitempty"`

	PastClient       bool   `json:"past_client"`
	PastClientReason string `json:"past_client_reason,omitempty"`
	// Override is set when Past Client status replaced a scored category.
	Override string `json:"override,omitempty"`

	Emails []string `json:"emails,omitempty"`
	// PersonalOnly is true when the record has emails and all of them are on
	// personal webmail domains.
	PersonalOnly bool `json:"personal_only"`
}

// Reason renders a short explanation of the decision for audit text.
func (r Result) Reason() string {
	if r.ShortCircuit != "" {
		return r.ShortCircuit
	}
	return fmt.Sprintf("agent score %d, vendor score %d", r.AgentScore, r.VendorScore)
}

// Classifier applies one immutable rule set. It is safe for concurrent use.
type Classifier struct {
	rules Rules

	brokerageDomains map[string]struct{}
	brokerageNames   map[string]struct{}
	vendorDomains    map[string]struct{}
	personalDomains  map[string]struct{}
	sold             map[string]struct{}
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSoldProperties supplies street addresses of properties sold to past
// clients. A record whose address matches one is treated as a Past Client.
func WithSoldProperties(addresses []string) Option {
	return func(c *Classifier) {
		for _, a := range addresses {
			if n := normalize.NormalizeAddress(a); n != "" {
				c.sold[n] = struct{}{}
			}
		}
	}
}

// New creates a Classifier for rules.
func New(rules Rules, opts ...Option) *Classifier {
	c := &Classifier{
		rules:            rules,
		brokerageDomains: lowerSet(rules.BrokerageDomains),
		vendorDomains:    lowerSet(rules.VendorDomains),
		personalDomains:  lowerSet(rules.PersonalDomains),
		brokerageNames:   make(map[string]struct{}, len(rules.BrokerageNames)),
		sold:             make(map[string]struct{}),
	}
	for _, n := range rules.BrokerageNames {
		c.brokerageNames[normalize.CleanNamePart(n)] = struct{}{}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SoldProperties returns the number of sold-property addresses loaded.
func (c *Classifier) SoldProperties() int {
	return len(c.sold)
}

// IsPersonalDomain reports whether domain is a personal webmail domain under
// the classifier's rules.
func (c *Classifier) IsPersonalDomain(domain string) bool {
	_, ok := c.personalDomains[strings.ToLower(domain)]
	return ok
}

// Classify computes the category of rec from its current fields. It does not
// modify rec and returns the same result for the same field values.
func (c *Classifier) Classify(rec *model.Record) Result {
	res := Result{Category: model.CategoryContact}
	res.Emails = normalize.ExtractEmails(rec)
	res.PersonalOnly = len(res.Emails) > 0
	for _, e := range res.Emails {
		if !c.IsPersonalDomain(normalize.EmailDomain(e)) {
			res.PersonalOnly = false
			break
		}
	}

	res.PastClientReason = c.pastClient(rec)
	res.PastClient = res.PastClientReason != ""

	if reason, cat := c.shortCircuit(rec, res.Emails); reason != "" {
		res.ShortCircuit = reason
		res.Category = cat
	} else {
		c.score(rec, res.Emails, &res)
		res.Category = c.decide(res.AgentScore, res.VendorScore)
	}

	if res.PastClient && res.Category != model.CategoryContact {
		res.Override = fmt.Sprintf("Past Client override: kept as Contact instead of %s (%s; %s)",
			res.Category, res.PastClientReason, res.Reason())
		res.Category = model.CategoryContact
	}
	return res
}

func (c *Classifier) decide(agent, vendor int) model.Category {
	agentOK := agent >= c.rules.AgentThreshold
	vendorOK := vendor >= c.rules.VendorThreshold
	switch {
	case agentOK && vendorOK:
		if agent > vendor {
			return model.CategoryAgent
		}
		if vendor > agent {
			return model.CategoryVendor
		}
		return model.CategoryContact
	case agentOK:
		return model.CategoryAgent
	case vendorOK:
		return model.CategoryVendor
	}
	return model.CategoryContact
}

func (c *Classifier) shortCircuit(rec *model.Record, emails []string) (string, model.Category) {
	for _, e := range emails {
		d := normalize.EmailDomain(e)
		if c.isBrokerageDomain(d) {
			return "brokerage domain " + d, model.CategoryAgent
		}
		local := normalize.EmailLocal(e)
		for _, kw := range c.rules.AgentUsernameKeywords {
			if strings.Contains(local, kw) {
				return fmt.Sprintf("agent keyword %q in %s", kw, e), model.CategoryAgent
			}
		}
	}

	if company := normalize.FirstValue(rec, normalize.CompanyFields...); company != "" {
		if _, ok := c.brokerageNames[normalize.CleanNamePart(company)]; ok {
			return "company is brokerage " + company, model.CategoryAgent
		}
	}

	for _, e := range emails {
		d := normalize.EmailDomain(e)
		if _, ok := c.vendorDomains[d]; ok {
			return "vendor domain " + d, model.CategoryVendor
		}
		if c.IsPersonalDomain(d) {
			continue
		}
		label := domainLabel(d)
		for _, kw := range c.rules.VendorShortCircuitKeywords {
			if keywordInLabel(label, kw) {
				return fmt.Sprintf("vendor keyword %q in domain %s", kw, d), model.CategoryVendor
			}
		}
	}
	return "", ""
}

func (c *Classifier) score(rec *model.Record, emails []string, res *Result) {
	w := c.rules.Weights
	agent := func(points int, signal string) {
		res.AgentScore += points
		res.Signals = append(res.Signals, fmt.Sprintf("agent +%d %s", points, signal))
	}
	vendor := func(points int, signal string) {
		res.VendorScore += points
		res.Signals = append(res.Signals, fmt.Sprintf("vendor +%d %s", points, signal))
	}

	company := strings.ToLower(normalize.FirstValue(rec, normalize.CompanyFields...))
	title := strings.ToLower(normalize.FirstValue(rec, normalize.TitleFields...))
	labels := make([]string, 0, len(emails))

	if kw := firstLocalKeyword(emails, c.rules.AgentEmailKeywords); kw != "" {
		agent(w.AgentEmailKeyword, fmt.Sprintf("email keyword %q", kw))
	}
	agentDomain := ""
	for _, e := range emails {
		d := normalize.EmailDomain(e)
		if c.IsPersonalDomain(d) {
			continue
		}
		label := domainLabel(d)
		labels = append(labels, label)
		if agentDomain == "" {
			if kw := firstContained(label, c.rules.AgentDomainKeywords); kw != "" {
				agentDomain = d
			}
		}
	}
	if agentDomain != "" {
		agent(w.AgentDomainKeyword, "real-estate domain "+agentDomain)
	}

	if site := websiteHost(normalize.FirstValue(rec, WebsiteFields...)); site != "" {
		switch {
		case c.isBrokerageDomain(site):
			agent(w.BrokerageDomain, "brokerage website "+site)
		case c.isVendorDomain(site):
			vendor(w.VendorDomain, "vendor website "+site)
		}
	}

	if kw := firstContained(company, c.rules.RealEstateCompanyKeywords); kw != "" {
		agent(w.RealEstateCompany, fmt.Sprintf("company keyword %q", kw))
	}
	if kw := firstContained(title, c.rules.AgentTitles); kw != "" {
		agent(w.AgentTitle, fmt.Sprintf("title %q", kw))
	}

	lists := append(merge.SplitList(rec.Get(model.FieldTags)), merge.SplitList(rec.Get(model.FieldGroups))...)
	if tag := firstListed(lists, c.rules.AgentTags); tag != "" {
		agent(w.AgentTag, fmt.Sprintf("tag %q", tag))
	}
	if tag := firstListed(lists, c.rules.VendorTags); tag != "" {
		vendor(w.VendorTag, fmt.Sprintf("tag %q", tag))
	}

	text := strings.Join(append([]string{company, title}, labels...), " ")
	for _, kw := range c.rules.VendorKeywords {
		if strings.Contains(text, kw) {
			vendor(w.VendorKeyword, fmt.Sprintf("keyword %q", kw))
		}
	}
	if s := companySuffix(company, c.rules.VendorCompanySuffixes); s != "" {
		vendor(w.VendorCompanySuffix, fmt.Sprintf("company suffix %q", s))
	}
	if kw := firstContained(title, c.rules.VendorTitles); kw != "" {
		vendor(w.VendorTitle, fmt.Sprintf("title %q", kw))
	}
}

func (c *Classifier) pastClient(rec *model.Record) string {
	fields := append([]string{model.FieldGroups, model.FieldTags}, c.rules.PastClientFields...)
	for _, f := range fields {
		for _, item := range merge.SplitList(rec.Get(f)) {
			if strings.HasPrefix(item, "Group:") {
				continue
			}
			if kw := firstContained(strings.ToLower(item), c.rules.PastClientMarkers); kw != "" {
				return fmt.Sprintf("%s %q", f, item)
			}
		}
	}
	for _, a := range normalize.ExtractAddresses(rec) {
		if _, ok := c.sold[a]; ok {
			return "address matches sold property " + a
		}
	}
	return ""
}

func (c *Classifier) isBrokerageDomain(d string) bool {
	return inDomainSet(c.brokerageDomains, d)
}

func (c *Classifier) isVendorDomain(d string) bool {
	return inDomainSet(c.vendorDomains, d)
}

// inDomainSet matches d or any parent domain of d.
func inDomainSet(set map[string]struct{}, d string) bool {
	for d != "" {
		if _, ok := set[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			return false
		}
		d = d[i+1:]
	}
	return false
}

// domainLabel strips the top-level domain: "smith-law.com" → "smith-law".
func domainLabel(d string) string {
	if i := strings.LastIndexByte(d, '.'); i > 0 {
		return d[:i]
	}
	return d
}

// keywordInLabel matches kw inside label. Keywords shorter than four
// characters must end the label so "law" matches "smithlaw" but not
// "lawrencehomes".
func keywordInLabel(label, kw string) bool {
	if len(kw) < 4 {
		return strings.HasSuffix(label, kw)
	}
	return strings.Contains(label, kw)
}

func websiteHost(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

func companySuffix(company string, suffixes []string) string {
	words := strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(company))
	if len(words) < 2 {
		return ""
	}
	last := words[len(words)-1]
	for _, s := range suffixes {
		if last == s {
			return s
		}
	}
	return ""
}

func firstContained(text string, keywords []string) string {
	if text == "" {
		return ""
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

func firstLocalKeyword(emails, keywords []string) string {
	for _, e := range emails {
		if kw := firstContained(normalize.EmailLocal(e), keywords); kw != "" {
			return kw
		}
	}
	return ""
}

func firstListed(items, wanted []string) string {
	for _, w := range wanted {
		if merge.HasTag(items, w) {
			return w
		}
	}
	return ""
}

func lowerSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, s := range items {
		out[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return out
}
