package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// Weights are the additive score contributions of each signal.
type Weights struct {
	BrokerageDomain     int `yaml:"brokerage_domain"`
	AgentEmailKeyword   int `yaml:"agent_email_keyword"`
	AgentDomainKeyword  int `yaml:"agent_domain_keyword"`
	RealEstateCompany   int `yaml:"real_estate_company"`
	AgentTitle          int `yaml:"agent_title"`
	AgentTag            int `yaml:"agent_tag"`
	VendorKeyword       int `yaml:"vendor_keyword"`
	VendorCompanySuffix int `yaml:"vendor_company_suffix"`
	VendorTitle         int `yaml:"vendor_title"`
	VendorDomain        int `yaml:"vendor_domain"`
	VendorTag           int `yaml:"vendor_tag"`
}

// Rules is the keyword and weight configuration for a Classifier. A Rules
// value is copied into the Classifier at construction and never mutated
// afterwards.
type Rules struct {
	BrokerageDomains           []string `yaml:"brokerage_domains"`
	BrokerageNames             []string `yaml:"brokerage_names"`
	AgentUsernameKeywords      []string `yaml:"agent_username_keywords"`
	AgentEmailKeywords         []string `yaml:"agent_email_keywords"`
	AgentDomainKeywords        []string `yaml:"agent_domain_keywords"`
	RealEstateCompanyKeywords  []string `yaml:"real_estate_company_keywords"`
	AgentTitles                []string `yaml:"agent_titles"`
	AgentTags                  []string `yaml:"agent_tags"`
	VendorDomains              []string `yaml:"vendor_domains"`
	VendorShortCircuitKeywords []string `yaml:"vendor_short_circuit_keywords"`
	VendorKeywords             []string `yaml:"vendor_keywords"`
	VendorCompanySuffixes      []string `yaml:"vendor_company_suffixes"`
	VendorTitles               []string `yaml:"vendor_titles"`
	VendorTags                 []string `yaml:"vendor_tags"`
	PersonalDomains            []string `yaml:"personal_domains"`
	PastClientMarkers          []string `yaml:"past_client_markers"`
	PastClientFields           []string `yaml:"past_client_fields"`

	Weights         Weights `yaml:"weights"`
	AgentThreshold  int     `yaml:"agent_threshold"`
	VendorThreshold int     `yaml:"vendor_threshold"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		BrokerageDomains: []string{
			"compass.com", "kw.com", "kwrealty.com", "remax.net", "remax.com",
			"coldwellbanker.com", "cbrealty.com", "century21.com", "sothebysrealty.com",
			"bhhs.com", "bhhsca.com", "exprealty.com", "redfin.com", "corcoran.com",
			"elliman.com", "howardhanna.com", "weichert.com", "longandfoster.com",
			"windermere.com", "theagencyre.com", "intero.com", "serenogroup.com",
		},
		BrokerageNames: []string{
			"Compass", "Keller Williams", "RE/MAX", "Coldwell Banker", "Century 21",
			"Sotheby's International Realty", "Berkshire Hathaway HomeServices",
			"eXp Realty", "Redfin", "Douglas Elliman", "Corcoran", "Windermere",
			"Howard Hanna", "Weichert", "Long & Foster", "The Agency", "Intero",
		},
		AgentUsernameKeywords: []string{"realtor", "agent", "broker"},
		AgentEmailKeywords:    []string{"realty", "homes", "properties", "realestate", "listings"},
		AgentDomainKeywords: []string{
			"realty", "realestate", "realtor", "homes", "properties", "remax",
			"sothebys", "coldwell", "century21",
		},
		RealEstateCompanyKeywords: []string{
			"realty", "real estate", "realtors", "properties", "homes", "brokerage",
			"keller williams", "coldwell", "sotheby", "remax", "century 21",
		},
		AgentTitles: []string{
			"realtor", "real estate agent", "real estate", "broker associate",
			"associate broker", "listing agent", "buyers agent", "sales associate",
			"managing broker", "broker owner",
		},
		AgentTags: []string{"agent", "agents", "realtor", "realtors", "co-op agent"},
		VendorDomains: []string{
			"modustitle.com", "firstam.com", "ctt.com", "ctic.com", "oldrepublictitle.com",
			"stewart.com", "wfgnationaltitle.com", "escrow.com", "rocketmortgage.com",
			"guildmortgage.com", "movement.com", "fairwaymc.com",
		},
		VendorShortCircuitKeywords: []string{"escrow", "title", "law", "legal", "attorney"},
		VendorKeywords: []string{
			"mortgage", "lending", "loan", "insurance", "inspection", "inspector",
			"escrow", "title", "appraisal", "plumbing", "roofing", "electric",
			"construction", "contractor", "staging", "cleaning", "moving", "pest",
			"landscaping", "handyman", "photography", "bank",
		},
		VendorCompanySuffixes: []string{"llc", "inc", "corp", "corporation", "co", "ltd", "pllc", "lp"},
		VendorTitles: []string{
			"escrow officer", "title officer", "attorney", "loan officer", "mortgage",
			"inspector", "lender", "appraiser", "contractor", "insurance agent",
		},
		VendorTags:        []string{"vendor", "vendors"},
		PersonalDomains:   append([]string(nil), normalize.DefaultPersonalDomains...),
		PastClientMarkers: []string{"past client", "past clients", "former client", "closed client"},
		PastClientFields:  []string{"Classification", "Client Type", "Contact Type", "Status", "Category"},

		Weights: Weights{
			BrokerageDomain:     50,
			AgentEmailKeyword:   20,
			AgentDomainKeyword:  45,
			RealEstateCompany:   40,
			AgentTitle:          40,
			AgentTag:            40,
			VendorKeyword:       20,
			VendorCompanySuffix: 30,
			VendorTitle:         50,
			VendorDomain:        50,
			VendorTag:           40,
		},
		AgentThreshold:  35,
		VendorThreshold: 40,
	}
}

// LoadRules reads a YAML rule file. Keys missing from the file keep their
// DefaultRules values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "classify: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, eris.Wrapf(err, "classify: parse rules %s", path)
	}
	if rules.AgentThreshold <= 0 || rules.VendorThreshold <= 0 {
		return rules, eris.Errorf("classify: rules %s: thresholds must be positive", path)
	}
	return rules, nil
}

// MarshalRules renders rules as YAML.
func MarshalRules(r Rules) ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "classify: marshal rules")
	}
	return out, nil
}
