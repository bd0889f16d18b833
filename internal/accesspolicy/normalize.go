package accesspolicy

import (
	"strings"

	"golang.org/x/net/idna"
)

// Normalize canonicalizes a request or configured domain: lowercase,
// port and bracket stripping, trailing dots removed, leading "www."
// labels removed, unicode names folded to punycode. Normalize is
// idempotent: Normalize(Normalize(d)) == Normalize(d).
func Normalize(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return ""
	}

	d = stripPort(d)
	d = strings.TrimRight(d, ".")

	for strings.HasPrefix(d, "www.") {
		d = strings.TrimPrefix(d, "www.")
	}

	if ascii, err := idna.Lookup.ToASCII(d); err == nil && ascii != "" {
		d = ascii
	}

	return d
}

// stripPort removes a trailing ":port" and IPv6 brackets. A bare IPv6
// address (multiple colons, no brackets) is left untouched.
func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if i := strings.LastIndex(host, "]"); i >= 0 {
			return host[1:i]
		}
		return strings.TrimPrefix(host, "[")
	}

	i := strings.LastIndex(host, ":")
	if i < 0 {
		return host
	}
	if strings.Contains(host[:i], ":") {
		return host
	}

	port := host[i+1:]
	for _, r := range port {
		if r < '0' || r > '9' {
			return host
		}
	}

	return host[:i]
}
