package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/crm-cleanup/internal/model"
)

func rec(fields map[string]string, order ...string) *model.Record {
	return model.RecordFromMap(0, fields, order...)
}

func TestExtractEmails_KnownAndFreeFields(t *testing.T) {
	r := rec(map[string]string{
		"Email": "John@X.com ",
		"Notes": "alt: j.smith@work.org, also John@x.com",
		"Tags":  "ref a@b.com",
	}, "Notes", "Email", "Tags")

	assert.Equal(t, []string{"john@x.com", "j.smith@work.org"}, ExtractEmails(r))
}

func TestExtractEmails_SkipsChangesMade(t *testing.T) {
	r := rec(map[string]string{
		"First Name":   "Ann",
		"Changes Made": "Added email old@x.com",
	})
	assert.Empty(t, ExtractEmails(r))
}

func TestExtractEmails_Empty(t *testing.T) {
	assert.Empty(t, ExtractEmails(rec(map[string]string{"Email": "not an email"})))
}

func TestExtractPhones(t *testing.T) {
	r := rec(map[string]string{
		"Phone":             "(555) 123-4567",
		"Mobile Phone":      "1-555-987-6543",
		"Fax":               "5551112222",
		"Home phone number": "000-000-0000",
		"Other phone":       "123-4567",
		"Phone 1 - Value":   "+1 555-222-3333 ::: 555-444-5555",
	})

	assert.Equal(t, []string{"5551234567", "5559876543", "5552223333", "5554445555"}, ExtractPhones(r))
}

func TestExtractPhones_Dedupes(t *testing.T) {
	r := rec(map[string]string{
		"Phone":      "555.123.4567",
		"Home Phone": "+1 (555) 123-4567",
	})
	assert.Equal(t, []string{"5551234567"}, ExtractPhones(r))
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"(555) 123-4567", "5551234567"},
		{"15551234567", "5551234567"},
		{"25551234567", "25551234567"},
		{"555-1234", ""},
		{"000-000-0000", ""},
		{"1 000 000 0000", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPhone(tt.in), tt.in)
	}
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(650) 253-0000", FormatPhone("6502530000"))
	assert.Equal(t, "123", FormatPhone("123"))
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"John.Smith+crm@Gmail.com", "johnsmith@gmail.com"},
		{"  jsmith42@x.com ", "jsmith@x.com"},
		{"123@x.com", "123@x.com"},
		{"a.b.c@d.org", "abc@d.org"},
		{"nodomain", "nodomain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in), tt.in)
	}
}

func TestNormalizeEmail_Idempotent(t *testing.T) {
	inputs := []string{
		"John.Smith+crm@Gmail.com",
		"a1.2@x.com",
		"12+x@y.com",
		"first.last99@company.co",
		"",
		"@",
	}
	for _, in := range inputs {
		once := NormalizeEmail(in)
		assert.Equal(t, once, NormalizeEmail(once), in)
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"John", "Smith", "john smith"},
		{"  JOSÉ ", "García-López", "jose garcia lopez"},
		{"Mary-Kate", "O'Brien", "mary kate obrien"},
		{"John", "", ""},
		{"", "Smith", ""},
		{"...", "Smith", ""},
		{"Anne   Marie", "Jones,", "anne marie jones"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalName(tt.first, tt.last), tt.first+"/"+tt.last)
	}
}

func TestCleanNamePart_Stable(t *testing.T) {
	for _, in := range []string{"José", "O'Brien-Smith", "  a  b ", "Dr. J."} {
		once := CleanNamePart(in)
		assert.Equal(t, once, CleanNamePart(once), in)
	}
}

func TestFirstLastName_Aliases(t *testing.T) {
	r := rec(map[string]string{"Given Name": "Jane", "Family Name": "Doe"})
	assert.Equal(t, "Jane", FirstName(r))
	assert.Equal(t, "Doe", LastName(r))
}

func TestFirstLastName_FullNameFallback(t *testing.T) {
	r := rec(map[string]string{"Name": "Jane Q Doe"})
	assert.Equal(t, "Jane", FirstName(r))
	assert.Equal(t, "Doe", LastName(r))

	single := rec(map[string]string{"Name": "Cher"})
	assert.Equal(t, "", FirstName(single))
	assert.Equal(t, "", LastName(single))
}

func TestFirstLastName_PartialColumnsDoNotFallBack(t *testing.T) {
	r := rec(map[string]string{"First Name": "Sam", "Name": "Sam Jones"})
	assert.Equal(t, "Sam", FirstName(r))
	assert.Equal(t, "", LastName(r))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "John Smith", DisplayName(rec(map[string]string{"First Name": "JOHN", "Last Name": "smith"})))
	assert.Equal(t, "#0", DisplayName(rec(map[string]string{"Email": "a@b.com"})))
}

func TestIdentify(t *testing.T) {
	r := rec(map[string]string{
		"First Name": "John",
		"Last Name":  "Smith",
		"Email":      "john@x.com",
		"Phone":      "555-123-4567",
	})
	id := Identify(r)
	assert.Equal(t, "john smith", id.CanonicalName)
	assert.Equal(t, []string{"john@x.com"}, id.Emails)
	assert.Equal(t, []string{"5551234567"}, id.Phones)
	assert.False(t, id.Empty())
	assert.True(t, Identify(rec(map[string]string{"Notes": "hi"})).Empty())
}

func TestEmailParts(t *testing.T) {
	assert.Equal(t, "compass.com", EmailDomain("Agent@Compass.com"))
	assert.Equal(t, "agent", EmailLocal("Agent@Compass.com"))
	assert.Equal(t, "", EmailDomain("nope"))
	assert.True(t, IsPersonalDomain("Gmail.com"))
	assert.False(t, IsPersonalDomain("compass.com"))
}

func TestIsChannelField(t *testing.T) {
	assert.True(t, IsEmailField("Work Email"))
	assert.True(t, IsEmailField("E-mail 2 - Type"))
	assert.True(t, IsPhoneField("Phone 4 - Value"))
	assert.True(t, IsPhoneField("Cell"))
	assert.False(t, IsChannelField("Company"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "123 main st", NormalizeAddress("123 Main Street, Springfield, IL"))
	assert.Equal(t, "123 main st", NormalizeAddress("123 Main St."))
	assert.Equal(t, "45 n oak ave apt 2", NormalizeAddress("45 North Oak Avenue Apt #2"))
	assert.Equal(t, "", NormalizeAddress("  "))
}

func TestExtractAddresses(t *testing.T) {
	r := rec(map[string]string{
		"Address":      "123 Main Street",
		"Home Address": "123 main st.",
		"Street":       "9 Elm Road",
	})
	assert.Equal(t, []string{"123 main st", "9 elm rd"}, ExtractAddresses(r))
}
