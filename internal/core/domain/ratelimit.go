package domain

import "time"

// RouteClass buckets requests into quota classes.
type RouteClass string

const (
	ClassLogin   RouteClass = "login"
	ClassAPI     RouteClass = "api"
	ClassHeavy   RouteClass = "heavy"
	ClassAJAX    RouteClass = "ajax"
	ClassGeneral RouteClass = "general"
)

// Quota is a fixed-window allowance.
type Quota struct {
	Limit  int
	Window time.Duration
}

// DefaultQuotas returns the built-in allowance per class.
func DefaultQuotas() map[RouteClass]Quota {
	return map[RouteClass]Quota{
		ClassLogin:   {Limit: 5, Window: 900 * time.Second},
		ClassAPI:     {Limit: 60, Window: 60 * time.Second},
		ClassHeavy:   {Limit: 10, Window: 60 * time.Second},
		ClassAJAX:    {Limit: 30, Window: 60 * time.Second},
		ClassGeneral: {Limit: 120, Window: 60 * time.Second},
	}
}

// RateLimitRecord is the persisted counter for one identifier and window.
type RateLimitRecord struct {
	Identifier string
	Attempts   int
	ExpiresAt  time.Time
}

// Valid reports whether the record still belongs to the current window.
func (r RateLimitRecord) Valid(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// RateLimitDecision is the outcome of a rate limit check.
type RateLimitDecision struct {
	Allowed     bool
	Blacklisted bool
	Whitelisted bool
	Class       RouteClass
	Identifier  string
	Limit       int
	Remaining   int
	Reset       time.Time
	// RetryAfter is in whole seconds.
	RetryAfter int
}

// BlacklistEntry bans an IP, optionally until ExpiresAt.
type BlacklistEntry struct {
	IP        string     `json:"ip"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the ban applies at now.
func (b BlacklistEntry) Active(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}
