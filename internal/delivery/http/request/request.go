package request

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrKeywordRequired = errors.New("keyword query parameter is required")
	ErrInvalidMST      = errors.New("mst must be between 10 and 14 characters")
	ErrInvalidLimit    = errors.New("limit must be a positive integer")
)

// Keyword reads the required keyword query parameter.
func Keyword(r *http.Request) (string, error) {
	kw := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if kw == "" {
		return "", ErrKeywordRequired
	}
	return kw, nil
}

// MST reads the tax ID parameter of the contact endpoint.
func MST(r *http.Request) (string, error) {
	mst := strings.TrimSpace(r.URL.Query().Get("mst"))
	if n := utf8.RuneCountInString(mst); n < 10 || n > 14 {
		return "", ErrInvalidMST
	}
	return mst, nil
}

// Limit reads an optional page size, clamped to MaxLimit.
func Limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrInvalidLimit
	}
	return min(n, MaxLimit), nil
}
