package request

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestMST(t *testing.T) {
	tests := []struct {
		query string
		err   error
	}{
		{"mst=0123456789", nil},
		{"mst=0123456789-001", nil},
		{"mst=%200123456789%20", nil},
		{"mst=012345678", ErrInvalidMST},
		{"mst=012345678901234", ErrInvalidMST},
		{"", ErrInvalidMST},
	}
	for _, test := range tests {
		_, err := MST(httptest.NewRequest("GET", "/get-contact-info?"+test.query, nil))
		if !errors.Is(err, test.err) {
			t.Errorf("MST(%q) error = %v, expected %v", test.query, err, test.err)
		}
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		query    string
		expected int
		err      error
	}{
		{"", DefaultLimit, nil},
		{"limit=5", 5, nil},
		{"limit=1000", MaxLimit, nil},
		{"limit=0", 0, ErrInvalidLimit},
		{"limit=abc", 0, ErrInvalidLimit},
	}
	for _, test := range tests {
		got, err := Limit(httptest.NewRequest("GET", "/companies?"+test.query, nil))
		if got != test.expected || !errors.Is(err, test.err) {
			t.Errorf("Limit(%q) = %d, %v", test.query, got, err)
		}
	}
}

func TestKeyword(t *testing.T) {
	if _, err := Keyword(httptest.NewRequest("GET", "/tax-info?keyword=%20%20", nil)); !errors.Is(err, ErrKeywordRequired) {
		t.Errorf("blank keyword accepted: %v", err)
	}
	if kw, err := Keyword(httptest.NewRequest("GET", "/tax-info?keyword=+ABC+", nil)); err != nil || kw != "ABC" {
		t.Errorf("Keyword = %q, %v", kw, err)
	}
}
