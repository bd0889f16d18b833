package accesspolicy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesWildcard(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		domain  string
		want    bool
	}{
		{"direct subdomain", "*.example.com", "api.example.com", true},
		{"nested subdomain", "*.example.com", "a.b.example.com", true},
		{"bare base matches", "*.example.com", "example.com", true},
		{"base with www matches", "*.example.com", "www.example.com", true},
		{"different domain", "*.example.com", "example.org", false},
		{"suffix is not a subdomain", "*.example.com", "notexample.com", false},
		{"case and port ignored", "*.Example.COM", "API.example.com:443", true},
		{"no star is exact match", "example.com", "example.com", true},
		{"no star rejects subdomain", "example.com", "api.example.com", false},
		{"invalid label rejected", "*.example.com", "bad_label.example.com", false},
		{"hyphen-edged label rejected", "*.example.com", "-x.example.com", false},
		{"empty domain", "*.example.com", "", false},
		{"empty pattern", "", "example.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesWildcard(tc.pattern, tc.domain))
		})
	}
}

func TestMatchesWildcardLongLabel(t *testing.T) {
	long := strings.Repeat("a", 64)
	assert.False(t, MatchesWildcard("*.example.com", long+".example.com"))
	assert.True(t, MatchesWildcard("*.example.com", strings.Repeat("a", 63)+".example.com"))
}

func TestIsDevelopmentDomain(t *testing.T) {
	dev := []string{
		"localhost",
		"localhost:3000",
		"127.0.0.1",
		"127.0.0.1:8080",
		"::1",
		"0.0.0.0",
		"myapp.local",
		"myapp.dev",
		"myapp.test",
		"app.localhost",
		"postman-echo.com",
	}
	for _, d := range dev {
		assert.True(t, IsDevelopmentDomain(d), "expected %q to be a development domain", d)
	}

	prod := []string{
		"example.com",
		"api.example.com",
		"8.8.8.8",
		"devexample.com",
		"",
	}
	for _, d := range prod {
		assert.False(t, IsDevelopmentDomain(d), "expected %q to not be a development domain", d)
	}
}
