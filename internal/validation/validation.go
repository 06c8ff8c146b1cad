package validation

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// MaxKeywordLength is the longest search phrase accepted for tracking.
const MaxKeywordLength = 200

// domainPattern matches a bare hostname with at least one dot.
var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

// CleanDomain reduces a URL or domain to its bare lower-cased hostname:
// scheme, "www.", path, port and trailing slash are stripped.
func CleanDomain(s string) string {
	d := strings.ToLower(strings.TrimSpace(s))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if h, _, err := net.SplitHostPort(d); err == nil {
		d = h
	}
	return strings.TrimSuffix(d, ".")
}

// ValidateDomain reports whether s cleans to a plausible hostname.
func ValidateDomain(s string) (bool, string) {
	d := CleanDomain(s)
	if d == "" {
		return false, "Domain is required"
	}
	if len(d) > 253 || !domainPattern.MatchString(d) {
		return false, "Invalid domain"
	}
	return true, ""
}

// NormalizeKeyword trims a search phrase and collapses inner whitespace.
// Case is preserved; identity comparisons use KeywordKey.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(keyword), " ")
}

// KeywordKey is the case-insensitive identity of a keyword.
func KeywordKey(keyword string) string {
	return strings.ToLower(keyword)
}

// ValidateKeyword checks that a search phrase is non-empty, bounded and printable.
func ValidateKeyword(keyword string) (bool, string) {
	k := NormalizeKeyword(keyword)
	if k == "" {
		return false, "Keyword is required"
	}
	if len(k) > MaxKeywordLength {
		return false, "Keyword is too long"
	}
	for _, r := range k {
		if unicode.IsControl(r) {
			return false, "Keyword contains invalid characters"
		}
	}
	return true, ""
}

// ParseKeywordList splits newline or comma separated input into normalized keywords,
// dropping blanks and case-insensitive duplicates while keeping first-seen order.
func ParseKeywordList(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == ',' || r == '\r'
	})

	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		k := NormalizeKeyword(f)
		if k == "" || seen[KeywordKey(k)] {
			continue
		}
		seen[KeywordKey(k)] = true
		out = append(out, k)
	}
	return out
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}

// IsPrivateIP checks if an IP address is in a private/reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	// Cloud metadata endpoints (AWS/GCP, Azure)
	for _, meta := range []string{"169.254.169.254", "168.63.129.16"} {
		if ip.Equal(net.ParseIP(meta)) {
			return true
		}
	}

	return false
}

// IsPrivateHost checks if a hostname resolves to a private IP address.
// Unresolvable hosts are reported as private.
func IsPrivateHost(host string) (bool, error) {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return true, err
	}

	for _, ip := range ips {
		if IsPrivateIP(ip) {
			return true, nil
		}
	}

	return false, nil
}

// ValidateURLForFetch validates that a user-supplied URL is safe to load server-side.
// Blocks private IPs, localhost, and cloud metadata endpoints.
func ValidateURLForFetch(urlStr string) (bool, string) {
	valid, msg := ValidateURL(urlStr)
	if !valid {
		return false, msg
	}

	u, _ := url.Parse(urlStr)

	isPrivate, err := IsPrivateHost(u.Host)
	if err != nil {
		return false, "Cannot resolve hostname"
	}
	if isPrivate {
		return false, "URL points to a private or reserved IP address"
	}

	return true, ""
}
