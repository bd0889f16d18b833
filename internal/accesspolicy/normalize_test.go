package accesspolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "API.Example.COM", "api.example.com"},
		{"strips port", "example.com:8080", "example.com"},
		{"strips www", "www.example.com", "example.com"},
		{"strips nested www", "www.www.example.com", "example.com"},
		{"strips trailing dot", "example.com.", "example.com"},
		{"trims whitespace", "  example.com  ", "example.com"},
		{"ipv6 brackets", "[::1]:8080", "::1"},
		{"bare ipv6 untouched", "::1", "::1"},
		{"ipv4 with port", "127.0.0.1:3000", "127.0.0.1"},
		{"unicode to punycode", "münchen.de", "xn--mnchen-3ya.de"},
		{"empty", "", ""},
		{"everything at once", "WWW.API.Example.com.:443", "api.example.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"WWW.Example.COM:443",
		"www.www.deep.example.com",
		"münchen.de",
		"[2001:db8::1]:8443",
		"api.example.com.",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", stripPort("example.com:80"))
	assert.Equal(t, "example.com", stripPort("example.com"))
	// Non-numeric suffix is not a port.
	assert.Equal(t, "example.com:abc", stripPort("example.com:abc"))
	assert.Equal(t, "2001:db8::1", stripPort("[2001:db8::1]:8080"))
	assert.Equal(t, "2001:db8::1", stripPort("2001:db8::1"))
}
