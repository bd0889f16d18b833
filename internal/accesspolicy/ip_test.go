package accesspolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPAllowed(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		allowed []string
		want    bool
	}{
		{"empty list allows all", "203.0.113.5", nil, true},
		{"exact ipv4 match", "203.0.113.5", []string{"203.0.113.5"}, true},
		{"exact ipv4 miss", "203.0.113.6", []string{"203.0.113.5"}, false},
		{"cidr v4 contains", "10.0.1.200", []string{"10.0.1.0/24"}, true},
		{"cidr v4 excludes", "10.0.2.1", []string{"10.0.1.0/24"}, false},
		{"cidr with host bits set", "10.1.2.99", []string{"10.1.2.3/24"}, true},
		{"cidr v6 contains", "2001:db8::42", []string{"2001:db8::/32"}, true},
		{"cidr v6 excludes", "2001:db9::1", []string{"2001:db8::/32"}, false},
		{"v4-mapped v6 equals v4", "::ffff:203.0.113.5", []string{"203.0.113.5"}, true},
		{"second entry matches", "192.168.1.9", []string{"10.0.0.0/8", "192.168.1.0/24"}, true},
		{"garbage entry skipped", "203.0.113.5", []string{"not-an-ip/24", "203.0.113.5"}, true},
		{"unparseable client denied by cidr", "not-an-ip", []string{"10.0.0.0/8"}, false},
		{"unparseable client exact string match", "weird-host", []string{"weird-host"}, true},
		{"blank entries ignored", "203.0.113.5", []string{"", "  "}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IPAllowed(tc.ip, tc.allowed))
		})
	}
}
