package chromedp_crawler

import (
	"slices"
	"testing"
)

func TestIdentityManagerRotatesProxies(t *testing.T) {
	m := NewIdentityManager([]string{"http://p1:8000", "http://p2:8000"}, []string{"ua"})
	expected := []string{"http://p1:8000", "http://p2:8000", "http://p1:8000"}
	for i, want := range expected {
		id := m.Next()
		if id.Proxy != want {
			t.Errorf("call %d: proxy = %q, expected %q", i, id.Proxy, want)
		}
		if id.UserAgent != "ua" {
			t.Errorf("call %d: user agent = %q, expected ua", i, id.UserAgent)
		}
	}
}

func TestIdentityManagerDefaults(t *testing.T) {
	m := NewIdentityManager(nil, nil)
	for range 10 {
		id := m.Next()
		if id.Proxy != "" {
			t.Errorf("expected no proxy, got %q", id.Proxy)
		}
		if !slices.Contains(defaultUserAgents, id.UserAgent) {
			t.Errorf("unexpected user agent %q", id.UserAgent)
		}
	}
}
