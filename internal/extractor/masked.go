package extractor

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultHiddenMarkers flag a phone value the tax site has withheld.
var DefaultHiddenMarkers = []string{"ẩn", "hidden", "bị ẩn"}

const maskChars = "*•●x"

// PhoneMask recognises obscured phone placeholders on the tax lookup site.
type PhoneMask struct {
	markers []string
}

func NewPhoneMask(markers []string) *PhoneMask {
	if len(markers) == 0 {
		markers = DefaultHiddenMarkers
	}
	m := &PhoneMask{}
	for _, marker := range markers {
		m.markers = append(m.markers, strings.ToLower(norm.NFC.String(marker)))
	}
	return m
}

// IsMasked reports whether v is empty, carries a hidden marker or contains a masking character.
func (m *PhoneMask) IsMasked(v string) bool {
	v = strings.ToLower(norm.NFC.String(strings.TrimSpace(v)))
	if v == "" {
		return true
	}
	for _, marker := range m.markers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return strings.ContainsAny(v, maskChars)
}
