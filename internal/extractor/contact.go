// Package extractor turns cleaned announcement text into contact details.
//
// Everything here is pure: no I/O, deterministic, and safe for concurrent use.
package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/user/mst-crawler/internal/entity"
)

// DefaultPhonePrefixes are the Vietnamese mobile, landline and country prefixes
// a phone number may start with.
var DefaultPhonePrefixes = []string{
	"01", "02", "03", "05", "07", "08", "09", // mobile
	"024", "028", "0236", "0256", "0274", "0204", // landline
	"84", // country code
}

var (
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)

	taxCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Mã số doanh nghiệp:\s*(\d{10})`),
		regexp.MustCompile(`Mã số doanh nghiệp\s*(\d{10})`),
		regexp.MustCompile(`(?:^|\s)(\d{10})(?:\s|$)`),
	}

	// PhonePattern matches an optionally labelled phone-shaped digit run. Unicode
	// spaces such as NBSP count as separators.
	// Group 1 is the candidate without its label.
	PhonePattern = regexp.MustCompile(`(?i)(?:Điện thoại:\s*|Tel:\s*|Phone:\s*)?(\d{2,4}[.\-\s\p{Z}]?\d{3,4}[.\-\s\p{Z}]?\d{3,4}[.\-\s\p{Z}]?\d{0,4}|\d{9,11})`)

	phoneSeparatorRe = regexp.MustCompile(`[.\-\s\p{Z}]`)

	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Email:\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`Email\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}
)

// ContactExtractor finds the first plausible phone number and email in announcement text.
type ContactExtractor struct {
	prefixes []string
}

// New returns an extractor using the given phone prefixes, or DefaultPhonePrefixes when empty.
func New(prefixes []string) *ContactExtractor {
	if len(prefixes) == 0 {
		prefixes = DefaultPhonePrefixes
	}
	return &ContactExtractor{prefixes: append([]string(nil), prefixes...)}
}

// Extract returns the contact details found in text. Empty text yields an empty result.
func (e *ContactExtractor) Extract(text string) entity.ContactInfo {
	var info entity.ContactInfo
	if strings.TrimSpace(text) == "" {
		return info
	}
	text = whitespaceRe.ReplaceAllString(text, " ")

	taxCode := DetectTaxCode(text)
	info.Phone = e.firstPhone(text, taxCode)
	info.Email = firstEmail(text)
	return info
}

// DetectTaxCode returns the 10-digit enterprise code in text, trying the labelled forms first.
func DetectTaxCode(text string) string {
	for _, re := range taxCodePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

type phoneCandidate struct {
	offset int
	value  string
}

func (e *ContactExtractor) firstPhone(text, taxCode string) string {
	var candidates []phoneCandidate
	for _, idx := range PhonePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, phoneCandidate{offset: idx[0], value: text[idx[2]:idx[3]]})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].offset < candidates[j].offset })

	for _, c := range candidates {
		digits := NormalizePhone(c.value)
		if taxCode != "" && (digits == taxCode || strings.HasPrefix(digits, taxCode) || strings.HasPrefix(taxCode, digits)) {
			continue
		}
		if e.IsValidPhone(digits) {
			return digits
		}
	}
	return ""
}

// NormalizePhone strips the separators a phone number may be written with.
func NormalizePhone(s string) string {
	return phoneSeparatorRe.ReplaceAllString(strings.TrimSpace(s), "")
}

// IsValidPhone reports whether a digit-only string looks like a Vietnamese phone number.
func (e *ContactExtractor) IsValidPhone(digits string) bool {
	if len(digits) < 9 || len(digits) > 11 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(digits, p) {
			return true
		}
	}
	return digits[0] == '0' && (len(digits) == 10 || len(digits) == 11)
}

func firstEmail(text string) string {
	for _, re := range emailPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if strings.Contains(m[1], "@") && strings.Contains(m[1], ".") {
				return m[1]
			}
		}
	}
	return ""
}
