package seo

import "strings"

// FindRank returns the first organic result whose URL contains domain, or nil.
// domain should already be cleaned of scheme and trailing slash.
func FindRank(items []OrganicResult, domain string) *OrganicResult {
	d := strings.ToLower(domain)
	if d == "" {
		return nil
	}
	for i := range items {
		if items[i].URL != "" && strings.Contains(strings.ToLower(items[i].URL), d) {
			return &items[i]
		}
	}
	return nil
}
