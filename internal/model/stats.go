package model

// Stats holds process-wide counters for one run. They are reset by starting
// a new one.
type Stats struct {
	TotalRecords     int `json:"total_records"`
	MergedRecords    int `json:"merged_records"`
	DuplicatesTagged int `json:"duplicates_tagged"`
	Agents           int `json:"agents"`
	Vendors          int `json:"vendors"`
	PastClients      int `json:"past_clients"`
	Leads            int `json:"leads"`
	ChangedRecords   int `json:"changed_records"`
	PhonesAdded      int `json:"phones_added"`
	EmailsAdded      int `json:"emails_added"`
	PotentialFamily  int `json:"potential_family"`
	FailedRecords    int `json:"failed_records"`
}
