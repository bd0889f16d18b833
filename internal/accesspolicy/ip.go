package accesspolicy

import (
	"net/netip"
	"strings"
)

// IPAllowed checks clientIP against the allow-list. An empty list means no
// IP restriction. Entries containing "/" are CIDR ranges and are matched
// with real prefix-containment arithmetic for both IPv4 and IPv6; other
// entries match as single addresses.
func IPAllowed(clientIP string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	addr, addrErr := netip.ParseAddr(strings.TrimSpace(clientIP))
	if addrErr == nil {
		addr = addr.Unmap()
	}

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			if addrErr != nil {
				continue
			}
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			// Masked() tolerates host bits set in the configured entry
			// (e.g. 10.1.2.3/24).
			if prefix.Masked().Contains(addr) {
				return true
			}
			continue
		}

		if entry == clientIP {
			return true
		}
		if addrErr == nil {
			if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr {
				return true
			}
		}
	}

	return false
}
