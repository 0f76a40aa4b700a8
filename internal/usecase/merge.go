package usecase

import (
	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/extractor"
)

// MergeRecord combines the tax-site fields with the contact found in the announcement PDF.
// A usable tax-site phone always wins over the PDF phone; email only ever comes from the PDF.
func MergeRecord(keyword string, tax *entity.TaxInfo, contact *entity.ContactInfo, mask *extractor.PhoneMask) *entity.CompanyRecord {
	if tax == nil {
		tax = &entity.TaxInfo{}
	}
	rec := &entity.CompanyRecord{
		Keyword:             keyword,
		TaxID:               tax.TaxID,
		CompanyName:         tax.CompanyName,
		Address:             tax.Address,
		LegalRepresentative: tax.LegalRepresentative,
		StartDate:           tax.StartDate,
		Status:              tax.Status,
		CompanyType:         tax.CompanyType,
	}

	switch {
	case tax.Phone != "" && !mask.IsMasked(tax.Phone):
		rec.Phone, rec.PhoneSource = tax.Phone, entity.PhoneSourceTaxSite
	case contact != nil && contact.Phone != "":
		rec.Phone, rec.PhoneSource = contact.Phone, entity.PhoneSourcePDF
	}
	if contact != nil && contact.Email != "" {
		rec.Email, rec.EmailSource = contact.Email, entity.EmailSourcePDF
	}

	taxCopy := *tax
	rec.RawData = entity.RawData{
		TaxInfo:     &taxCopy,
		Phone:       rec.Phone,
		PhoneSource: rec.PhoneSource,
		Email:       rec.Email,
		EmailSource: rec.EmailSource,
	}
	if contact != nil {
		contactCopy := *contact
		rec.RawData.ContactInfo = &contactCopy
	}
	return rec
}
