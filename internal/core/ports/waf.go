package ports

import "net/http"

// WAF inspects a request before any other processing.
type WAF interface {
	// Inspect returns the name of the matched rule, or "" when the request
	// is clean.
	Inspect(r *http.Request) string
}
