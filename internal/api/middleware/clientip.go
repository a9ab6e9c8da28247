package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP returns the client address, trusting CF-Connecting-IP, then the
// first X-Forwarded-For hop, then X-Real-IP. Header values that do not parse
// as an IP are ignored.
func ClientIP(r *http.Request) string {
	if ip, ok := validIP(r.Header.Get("CF-Connecting-IP")); ok {
		return ip
	}
	if xff := r.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := validIP(first); ok {
			return ip
		}
	}
	if ip, ok := validIP(r.Header.Get(echo.HeaderXRealIP)); ok {
		return ip
	}
	return remoteIP(r)
}

// NewIPExtractor returns the echo IP extractor for the deployment: proxy
// headers are honoured only behind a trusted proxy.
func NewIPExtractor(trustProxy bool) echo.IPExtractor {
	if trustProxy {
		return ClientIP
	}
	return remoteIP
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func validIP(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
