package masothue

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/extractor"
)

// labelRule maps a Vietnamese row label to a TaxInfo field. Labels match by substring.
type labelRule struct {
	label string
	field func(*entity.TaxInfo) *string
}

var labelRules = []labelRule{
	{"Mã số thuế", func(t *entity.TaxInfo) *string { return &t.TaxID }},
	{"Địa chỉ", func(t *entity.TaxInfo) *string { return &t.Address }},
	{"Người đại diện", func(t *entity.TaxInfo) *string { return &t.LegalRepresentative }},
	{"Ngày hoạt động", func(t *entity.TaxInfo) *string { return &t.StartDate }},
	{"Tình trạng", func(t *entity.TaxInfo) *string { return &t.Status }},
	{"Loại hình DN", func(t *entity.TaxInfo) *string { return &t.CompanyType }},
}

const phoneLabel = "Điện thoại"

// Parser turns the result table markup into a TaxInfo.
type Parser struct {
	mask *extractor.PhoneMask
}

func NewParser(mask *extractor.PhoneMask) *Parser {
	if mask == nil {
		mask = extractor.NewPhoneMask(nil)
	}
	return &Parser{mask: mask}
}

// Parse extracts whatever fields are present. Missing rows are left empty;
// when a label repeats, the first non-empty value wins.
func (p *Parser) Parse(html string) (*entity.TaxInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse tax info markup: %w", err)
	}
	info := &entity.TaxInfo{}

	if name := doc.Find(`table.table-taxinfo thead th[itemprop="name"] .copy`).First(); name.Length() > 0 {
		if title, ok := name.Attr("title"); ok && strings.TrimSpace(title) != "" {
			info.CompanyName = clean(title)
		} else {
			info.CompanyName = clean(name.Text())
		}
	}

	doc.Find("table.table-taxinfo tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Children().Filter("td")
		if cells.Length() < 2 {
			return
		}
		label := clean(cells.Eq(0).Text())
		cell := cells.Eq(1)
		if label == "" {
			return
		}

		if strings.Contains(label, phoneLabel) {
			if info.Phone == "" {
				info.Phone = p.phone(cell)
			}
			return
		}
		for _, rule := range labelRules {
			if !strings.Contains(label, rule.label) {
				continue
			}
			dst := rule.field(info)
			if *dst == "" {
				*dst = cellValue(cell, rule.label)
			}
			return
		}
	})
	return info, nil
}

// cellValue prefers a nested name element for the representative row, whose
// cell also lists the other companies the person represents.
func cellValue(cell *goquery.Selection, label string) string {
	if label == "Người đại diện" {
		if name := cell.Find(`[itemprop="name"]`).First(); name.Length() > 0 {
			if v := clean(name.Text()); v != "" {
				return v
			}
		}
	}
	return clean(cell.Text())
}

// phone reads the unmasked value the site keeps in a title attribute, falling
// back to the visible text.
func (p *Parser) phone(cell *goquery.Selection) string {
	var phone string
	cell.Find("[title]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title, _ := s.Attr("title")
		title = clean(title)
		if p.mask.IsMasked(title) {
			return true
		}
		if digits := extractor.NormalizePhone(title); digits != "" && isDigits(digits) {
			phone = digits
			return false
		}
		return true
	})
	if phone != "" {
		return phone
	}

	text := clean(cell.Text())
	if m := extractor.PhonePattern.FindStringSubmatch(text); m != nil {
		return extractor.NormalizePhone(m[1])
	}
	return ""
}

func clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
