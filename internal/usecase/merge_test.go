package usecase

import (
	"testing"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/extractor"
)

func TestMergeRecordPhonePriority(t *testing.T) {
	mask := extractor.NewPhoneMask(nil)
	tests := []struct {
		name           string
		taxPhone       string
		contact        *entity.ContactInfo
		expectedPhone  string
		expectedSource entity.PhoneSource
	}{
		{"tax site wins", "0241234567", &entity.ContactInfo{Phone: "0909000000"}, "0241234567", entity.PhoneSourceTaxSite},
		{"pdf when tax site absent", "", &entity.ContactInfo{Phone: "0909000000"}, "0909000000", entity.PhoneSourcePDF},
		{"pdf when tax site masked", "09xx***123", &entity.ContactInfo{Phone: "0909000000"}, "0909000000", entity.PhoneSourcePDF},
		{"pdf when tax site hidden", "Bị ẩn", &entity.ContactInfo{Phone: "0909000000"}, "0909000000", entity.PhoneSourcePDF},
		{"both absent", "", &entity.ContactInfo{}, "", ""},
		{"no contact at all", "", nil, "", ""},
		{"tax site only", "0241234567", nil, "0241234567", entity.PhoneSourceTaxSite},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := MergeRecord("kw", &entity.TaxInfo{TaxID: "0123456789", Phone: test.taxPhone}, test.contact, mask)
			if rec.Phone != test.expectedPhone || rec.PhoneSource != test.expectedSource {
				t.Errorf("got phone %q source %q, expected %q %q", rec.Phone, rec.PhoneSource, test.expectedPhone, test.expectedSource)
			}
			if rec.RawData.Phone != rec.Phone || rec.RawData.PhoneSource != rec.PhoneSource {
				t.Errorf("raw data does not carry the merged phone: %+v", rec.RawData)
			}
		})
	}
}

func TestMergeRecordEmailOnlyFromPDF(t *testing.T) {
	mask := extractor.NewPhoneMask(nil)

	rec := MergeRecord("kw", &entity.TaxInfo{TaxID: "0123456789"}, &entity.ContactInfo{Email: "a@b.vn"}, mask)
	if rec.Email != "a@b.vn" || rec.EmailSource != entity.EmailSourcePDF {
		t.Errorf("unexpected email merge: %q %q", rec.Email, rec.EmailSource)
	}

	rec = MergeRecord("kw", &entity.TaxInfo{TaxID: "0123456789"}, nil, mask)
	if rec.Email != "" || rec.EmailSource != "" {
		t.Errorf("email must be absent without a pdf contact: %q %q", rec.Email, rec.EmailSource)
	}
}

func TestMergeRecordCopiesTaxFields(t *testing.T) {
	tax := &entity.TaxInfo{
		TaxID: "0123456789", CompanyName: "Công ty ABC", Address: "Hà Nội",
		LegalRepresentative: "Nguyễn Văn A", StartDate: "2020-01-01", Status: "Đang hoạt động", CompanyType: "TNHH",
	}
	rec := MergeRecord("Công ty ABC", tax, nil, extractor.NewPhoneMask(nil))
	if rec.Keyword != "Công ty ABC" || rec.TaxID != tax.TaxID || rec.CompanyName != tax.CompanyName ||
		rec.Address != tax.Address || rec.LegalRepresentative != tax.LegalRepresentative ||
		rec.StartDate != tax.StartDate || rec.Status != tax.Status || rec.CompanyType != tax.CompanyType {
		t.Errorf("tax fields not copied: %+v", rec)
	}

	tax.Address = "changed"
	if rec.RawData.TaxInfo.Address != "Hà Nội" {
		t.Error("raw data aliases the caller's tax info")
	}
}
