package chromedp_crawler

import (
	"math/rand/v2"
	"sync"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Identity is the network face a browser session presents.
type Identity struct {
	Proxy     string
	UserAgent string
}

// IdentityManager rotates proxies round-robin and picks user agents at random.
type IdentityManager struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
}

// NewIdentityManager falls back to built-in desktop user agents when none are given.
func NewIdentityManager(proxies, userAgents []string) *IdentityManager {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &IdentityManager{proxies: proxies, userAgents: userAgents}
}

// Next returns the identity for a new session. Proxy is empty when none are configured.
func (m *IdentityManager) Next() Identity {
	return Identity{Proxy: m.nextProxy(), UserAgent: m.userAgents[rand.IntN(len(m.userAgents))]}
}

func (m *IdentityManager) nextProxy() string {
	if len(m.proxies) == 0 {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}
