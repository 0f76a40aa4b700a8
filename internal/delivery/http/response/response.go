package response

import (
	"time"

	"github.com/user/mst-crawler/internal/entity"
)

const statusSuccess = "success"

type TaxInfoResponse struct {
	Keyword string          `json:"keyword"`
	Data    *entity.TaxInfo `json:"data"`
	Status  string          `json:"status"`
}

func NewTaxInfo(keyword string, info *entity.TaxInfo) TaxInfoResponse {
	return TaxInfoResponse{Keyword: keyword, Data: info, Status: statusSuccess}
}

type ContactInfoResponse struct {
	MST    string `json:"mst"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
}

func NewContactInfo(mst string, c *entity.ContactInfo) ContactInfoResponse {
	return ContactInfoResponse{MST: mst, Email: c.Email, Phone: c.Phone, Status: statusSuccess}
}

// CompanyResponse is the JSON shape of a merged company record.
type CompanyResponse struct {
	ID                  int64          `json:"id,omitempty"`
	Keyword             string         `json:"keyword"`
	TaxID               string         `json:"taxID,omitempty"`
	CompanyName         string         `json:"companyName,omitempty"`
	Address             string         `json:"address,omitempty"`
	LegalRepresentative string         `json:"legalRepresentative,omitempty"`
	StartDate           string         `json:"startDate,omitempty"`
	Status              string         `json:"status,omitempty"`
	CompanyType         string         `json:"companyType,omitempty"`
	Phone               string         `json:"phone,omitempty"`
	PhoneSource         string         `json:"phoneSource,omitempty"`
	Email               string         `json:"email,omitempty"`
	EmailSource         string         `json:"emailSource,omitempty"`
	RawData             entity.RawData `json:"rawData"`
	CreatedAt           *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time     `json:"updatedAt,omitempty"`
	DatabaseStatus      string         `json:"databaseStatus,omitempty"`
}

func NewCompany(rec *entity.CompanyRecord) CompanyResponse {
	resp := CompanyResponse{
		ID:                  rec.ID,
		Keyword:             rec.Keyword,
		TaxID:               rec.TaxID,
		CompanyName:         rec.CompanyName,
		Address:             rec.Address,
		LegalRepresentative: rec.LegalRepresentative,
		StartDate:           rec.StartDate,
		Status:              rec.Status,
		CompanyType:         rec.CompanyType,
		Phone:               rec.Phone,
		PhoneSource:         string(rec.PhoneSource),
		Email:               rec.Email,
		EmailSource:         rec.EmailSource,
		RawData:             rec.RawData,
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = &rec.CreatedAt
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = &rec.UpdatedAt
	}
	return resp
}

// NewCombined attaches the persistence outcome to the merged record.
func NewCombined(res *entity.LookupResult) CompanyResponse {
	resp := NewCompany(res.Record)
	resp.DatabaseStatus = string(res.DatabaseStatus)
	return resp
}

type CompanyListResponse struct {
	Count     int               `json:"count"`
	Companies []CompanyResponse `json:"companies"`
}

func NewCompanyList(recs []*entity.CompanyRecord) CompanyListResponse {
	out := CompanyListResponse{Count: len(recs), Companies: make([]CompanyResponse, 0, len(recs))}
	for _, rec := range recs {
		out.Companies = append(out.Companies, NewCompany(rec))
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}
