package accesspolicy

import (
	"net"
	"strings"
)

// Development-only hosts accepted for keys tagged with the development
// environment. Suffix entries match any subdomain depth.
var devDomainSuffixes = []string{".local", ".dev", ".test", ".localhost"}

var devDomainExact = map[string]bool{
	"localhost":        true,
	"postman-echo.com": true,
}

// MatchesWildcard reports whether domain matches a "*.base" pattern. The
// bare base matches, as does any chain of valid DNS labels under it. A
// pattern without the "*." prefix degrades to an exact match.
func MatchesWildcard(pattern, domain string) bool {
	p := Normalize(pattern)
	d := Normalize(domain)
	if p == "" || d == "" {
		return false
	}

	base, ok := strings.CutPrefix(p, "*.")
	if !ok {
		return p == d
	}

	if d == base {
		return true
	}

	prefix, ok := strings.CutSuffix(d, "."+base)
	if !ok {
		return false
	}

	for _, label := range strings.Split(prefix, ".") {
		if !validDNSLabel(label) {
			return false
		}
	}

	return true
}

func validDNSLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// IsDevelopmentDomain reports whether the normalized domain belongs to the
// fixed development set: localhost, loopback addresses, development TLD
// suffixes, or the known testing-echo host.
func IsDevelopmentDomain(domain string) bool {
	d := Normalize(domain)
	if d == "" {
		return false
	}

	if devDomainExact[d] {
		return true
	}

	if ip := net.ParseIP(d); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}

	for _, suffix := range devDomainSuffixes {
		if strings.HasSuffix(d, suffix) {
			return true
		}
	}

	return false
}
