package entity

import (
	"fmt"
	"strings"
)

// RegistrationType is the announcement filter value on the registry portal.
type RegistrationType string

const (
	RegistrationNew   RegistrationType = "NEW"
	RegistrationAmend RegistrationType = "AMEND"
)

// DefaultRegistrationOrder is the order in which registration types are tried.
var DefaultRegistrationOrder = []RegistrationType{RegistrationNew, RegistrationAmend}

// ParseRegistrationOrder validates a configured order. Empty input yields the default.
func ParseRegistrationOrder(values []string) ([]RegistrationType, error) {
	if len(values) == 0 {
		return DefaultRegistrationOrder, nil
	}
	seen := make(map[RegistrationType]bool, len(values))
	order := make([]RegistrationType, 0, len(values))
	for _, v := range values {
		t := RegistrationType(strings.ToUpper(strings.TrimSpace(v)))
		if t != RegistrationNew && t != RegistrationAmend {
			return nil, fmt.Errorf("unknown registration type %q", v)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		order = append(order, t)
	}
	return order, nil
}

// AnnouncementOutcome distinguishes a downloaded PDF from a valid empty search.
type AnnouncementOutcome string

const (
	AnnouncementFound     AnnouncementOutcome = "found"
	AnnouncementNoResults AnnouncementOutcome = "no_results"
)

// Announcement is the result of a registry crawl for one tax ID.
type Announcement struct {
	TaxID            string
	Outcome          AnnouncementOutcome
	RegistrationType RegistrationType // set when Outcome is AnnouncementFound
	Path             string           // local PDF file, caller owns and must remove it
}

// CaptchaTask lives for the duration of one solve call.
type CaptchaTask struct {
	CaptchaID string
	SiteKey   string
	PageURL   string
}
