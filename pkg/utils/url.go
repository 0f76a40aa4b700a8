package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashKey creates a SHA256 hash of a lookup key.
// Keywords are trimmed and lower-cased first so equivalent searches share a key.
func HashKey(raw string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(raw))))
	return hex.EncodeToString(h.Sum(nil))
}

// HostOf returns the host part of a URL, or "_" when it cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "_"
	}
	return u.Host
}
