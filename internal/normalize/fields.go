// Package normalize turns raw contact record fields into canonical names,
// email sets and phone sets.
package normalize

import "strings"

// EmailFields lists known email columns across CRM and phone exports, in the
// order they are scanned.
var EmailFields = []string{
	"Email",
	"E-mail",
	"Email Address",
	"Primary Email",
	"Personal Email",
	"Work Email",
	"Home Email",
	"Other Email",
	"Email 2",
	"Email 3",
	"E-mail 1 - Value",
	"E-mail 2 - Value",
	"E-mail 3 - Value",
}

// PhoneFields lists known phone columns. Any other column whose name contains
// "phone" is scanned as well.
var PhoneFields = []string{
	"Phone",
	"Mobile Phone",
	"Mobile",
	"Cell",
	"Cell Phone",
	"Home Phone",
	"Work Phone",
	"Business Phone",
	"Other Phone",
	"Primary Phone",
	"Phone 2",
	"Phone 3",
	"Phone 1 - Value",
	"Phone 2 - Value",
	"Phone 3 - Value",
}

// FirstNameFields and LastNameFields list name column aliases.
var (
	FirstNameFields = []string{"First Name", "First", "Given Name", "FirstName", "first_name"}
	LastNameFields  = []string{"Last Name", "Last", "Family Name", "Surname", "LastName", "last_name"}
	FullNameFields  = []string{"Name", "Full Name", "Display Name", "Contact Name"}
)

// CompanyFields, TitleFields and AddressFields list descriptive column aliases.
var (
	CompanyFields = []string{"Company", "Company Name", "Organization", "Organization 1 - Name", "Brokerage", "Business Name"}
	TitleFields   = []string{"Title", "Job Title", "Position", "Organization 1 - Title", "Occupation"}
	AddressFields = []string{
		"Address",
		"Street",
		"Street Address",
		"Address Line 1",
		"Home Address",
		"Home Street",
		"Mailing Address",
		"Property Address",
		"Address 1 - Street",
		"Address 1 - Formatted",
	}
)

var (
	emailFieldSet = lowerSet(EmailFields)
	phoneFieldSet = lowerSet(PhoneFields)
)

// IsEmailField reports whether name is a column that holds email addresses.
func IsEmailField(name string) bool {
	l := strings.ToLower(strings.TrimSpace(name))
	if _, ok := emailFieldSet[l]; ok {
		return true
	}
	return strings.Contains(l, "email") || strings.Contains(l, "e-mail")
}

// IsPhoneField reports whether name is a column that holds phone numbers.
func IsPhoneField(name string) bool {
	l := strings.ToLower(strings.TrimSpace(name))
	if _, ok := phoneFieldSet[l]; ok {
		return true
	}
	return strings.Contains(l, "phone")
}

// IsChannelField reports whether name is an email or phone column.
func IsChannelField(name string) bool {
	return IsEmailField(name) || IsPhoneField(name)
}

func lowerSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[strings.ToLower(s)] = struct{}{}
	}
	return m
}
