package entity

// DatabaseStatus reports what happened when a merged record was persisted.
type DatabaseStatus string

const (
	DatabaseSaved  DatabaseStatus = "saved"
	DatabaseFailed DatabaseStatus = "failed" // the sink rejected the record
	DatabaseError  DatabaseStatus = "error"  // the sink could not be reached or errored
)

// LookupStatus distinguishes a normal empty outcome from a found record.
type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not_found"
)

// LookupResult is the outcome of a combined lookup.
type LookupResult struct {
	Status         LookupStatus
	Reason         string // why nothing was found
	TaxInfo        *TaxInfo
	Record         *CompanyRecord
	DatabaseStatus DatabaseStatus
}

// ContactResult is the outcome of a contact lookup by tax ID.
type ContactResult struct {
	Status  LookupStatus
	Reason  string
	TaxID   string
	Contact *ContactInfo
}
