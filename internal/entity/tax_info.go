package entity

// TaxInfo is the set of fields scraped from the public tax lookup site.
// Empty strings mean the field was not present on the page.
type TaxInfo struct {
	CompanyName         string `json:"companyName,omitempty"`
	TaxID               string `json:"taxID,omitempty"`
	Address             string `json:"address,omitempty"`
	LegalRepresentative string `json:"legalRepresentative,omitempty"`
	StartDate           string `json:"startDate,omitempty"`
	Status              string `json:"status,omitempty"`
	CompanyType         string `json:"companyType,omitempty"`
	Phone               string `json:"phone,omitempty"`
}

// IsEmpty reports whether no field at all was extracted.
func (t *TaxInfo) IsEmpty() bool {
	return t == nil || *t == TaxInfo{}
}

// ContactInfo is what the announcement PDF yields.
type ContactInfo struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsEmpty reports whether neither a phone nor an email was found.
func (c *ContactInfo) IsEmpty() bool {
	return c == nil || (c.Phone == "" && c.Email == "")
}
