package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare first", map[string]string{"CF-Connecting-IP": "203.0.113.5", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.5"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"invalid forwarded falls through", map[string]string{"X-Forwarded-For": "bogus", "X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"ipv6", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
		{"remote addr", nil, "192.0.2.1"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		if got := ClientIP(req); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestNewIPExtractor_Untrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := NewIPExtractor(false)(req); got != "192.0.2.1" {
		t.Fatalf("untrusted extractor should use the socket address, got %s", got)
	}
}
