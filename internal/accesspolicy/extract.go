package accesspolicy

import (
	"net/http"
	"net/url"
	"strings"
)

// Domain-bearing headers in priority order.
var domainHeaders = []string{"Origin", "Referer", "Host", "X-Forwarded-Host"}

// ExtractDomain pulls the request's domain signal from its headers,
// checking Origin, then Referer, then Host, then the forwarded-host
// header. Returns "" when no header yields a usable domain.
func ExtractDomain(r *http.Request) string {
	for _, name := range domainHeaders {
		value := r.Header.Get(name)
		if name == "Host" && value == "" {
			value = r.Host
		}
		if value == "" {
			continue
		}

		if d := domainFromHeader(name, value); d != "" {
			return d
		}
	}

	return ""
}

func domainFromHeader(name, value string) string {
	switch name {
	case "Origin", "Referer":
		u, err := url.Parse(value)
		if err != nil || u.Host == "" {
			return ""
		}
		return Normalize(u.Host)
	case "X-Forwarded-Host":
		// May carry a comma-separated chain; the first entry is the
		// client-facing host.
		first, _, _ := strings.Cut(value, ",")
		return Normalize(first)
	default:
		return Normalize(value)
	}
}
