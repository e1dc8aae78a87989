package domain

import "time"

// Relationship is the account relationship declared by an ads.txt record.
type Relationship string

const (
	RelationshipDirect   Relationship = "DIRECT"
	RelationshipReseller Relationship = "RESELLER"
)

// AdsTxtEntry is one authorization record: domain, publisher id, relationship[, cert authority].
type AdsTxtEntry struct {
	Domain                 string       `json:"domain"`
	PublisherID            string       `json:"publisherId"`
	Relationship           Relationship `json:"relationship"`
	CertificationAuthority string       `json:"certificationAuthority,omitempty"`
	Line                   int          `json:"line"`
}

// AdsTxtAnalysis is the parsed state of a domain's ads.txt file.
// Everything but Valid is independent of any single identifier so it can be cached per domain.
type AdsTxtAnalysis struct {
	Domain    string        `json:"domain"`
	URL       string        `json:"url"`
	Found     bool          `json:"found"`
	Status    int           `json:"status,omitempty"`
	Entries   []AdsTxtEntry `json:"entries"`
	Relevant  []AdsTxtEntry `json:"relevant"`
	Valid     bool          `json:"valid"`
	Errors    []string      `json:"errors,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Match returns the strongest relevant entry for id: DIRECT wins over RESELLER.
func (a *AdsTxtAnalysis) Match(id PublisherID) (AdsTxtEntry, bool) {
	var reseller *AdsTxtEntry
	for i := range a.Relevant {
		e := a.Relevant[i]
		if !id.Matches(e.PublisherID) {
			continue
		}
		if e.Relationship == RelationshipDirect {
			return e, true
		}
		if reseller == nil {
			reseller = &a.Relevant[i]
		}
	}
	if reseller != nil {
		return *reseller, true
	}
	return AdsTxtEntry{}, false
}
