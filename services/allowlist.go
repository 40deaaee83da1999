package services

import (
	"net/url"
	"strings"
)

// AllowList classifies source URLs by host
type AllowList struct {
	domains []string
}

// NewAllowList builds an allow-list from approved domains
func NewAllowList(domains []string) *AllowList {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &AllowList{domains: normalized}
}

// IsAllowed reports whether the URL's host is an approved domain or a
// subdomain of one. Unparseable input is simply not allowed.
func (a *AllowList) IsAllowed(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
