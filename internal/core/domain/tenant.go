package domain

// Tenant is an isolated site served from its own domain.
type Tenant struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Active bool   `json:"active"`
}
