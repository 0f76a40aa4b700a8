package entity

import "time"

// PhoneSource records which site a merged phone number came from.
type PhoneSource string

const (
	PhoneSourceTaxSite PhoneSource = "tax-site"
	PhoneSourcePDF     PhoneSource = "pdf"
)

// EmailSourcePDF is the only origin an email address can have.
const EmailSourcePDF = "pdf"

// CompanyRecord mirrors the `companies` table and is the output of a combined lookup.
type CompanyRecord struct {
	ID                  int64
	Keyword             string
	TaxID               string
	CompanyName         string
	Address             string
	LegalRepresentative string
	StartDate           string
	Status              string
	CompanyType         string
	Phone               string
	PhoneSource         PhoneSource
	Email               string
	EmailSource         string
	RawData             RawData // Stored as JSON
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RawData is the unmerged snapshot of both sources kept for audit.
type RawData struct {
	TaxInfo     *TaxInfo     `json:"tax_info,omitempty"`
	ContactInfo *ContactInfo `json:"contact_info,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	PhoneSource PhoneSource  `json:"phone_source,omitempty"`
	Email       string       `json:"email,omitempty"`
	EmailSource string       `json:"email_source,omitempty"`
}
