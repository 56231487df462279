package model

import "strings"

// Category is the classification assigned to a contact.
type Category string

const (
	CategoryAgent   Category = "Agent"
	CategoryVendor  Category = "Vendor"
	CategoryContact Category = "Contact"
)

// ParseCategory maps free text to a Category. ok is false for anything that
// is not one of the three known values.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "agents":
		return CategoryAgent, true
	case "vendor", "vendors":
		return CategoryVendor, true
	case "contact", "contacts":
		return CategoryContact, true
	}
	return "", false
}

// Group names assigned by the engine.
const (
	GroupAgents      = "Agents"
	GroupVendors     = "Vendors"
	GroupPastClients = "Past Clients"
	GroupLeads       = "Leads"
)

// Identity is the normalized identity derived from a record. It is computed
// on demand and never stored on the record.
type Identity struct {
	CanonicalName string   `json:"canonical_name"`
	Emails        []string `json:"emails"`
	Phones        []string `json:"phones"`
}

// Empty reports whether the identity has no usable component.
func (id Identity) Empty() bool {
	return id.CanonicalName == "" && len(id.Emails) == 0 && len(id.Phones) == 0
}
