package domain

import "time"

// Flash levels.
const (
	FlashError   = "error"
	FlashWarning = "warning"
	FlashSuccess = "success"
)

// SessionSuperadmin is the superadmin entry of a session.
type SessionSuperadmin struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// SessionAdmin is the tenant admin entry of a session.
type SessionAdmin struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// SessionUser is the end-user entry of a session.
type SessionUser struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Session is the server-side state bound to the session cookie.
type Session struct {
	ID           string             `json:"-"`
	Superadmin   *SessionSuperadmin `json:"super_admin,omitempty"`
	Admin        *SessionAdmin      `json:"admin,omitempty"`
	User         *SessionUser       `json:"user,omitempty"`
	CSRFToken    string             `json:"_csrf_token,omitempty"`
	Locale       string             `json:"locale,omitempty"`
	Flashes      []Flash            `json:"flash,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`

	previousID string
	destroyed  bool
}

// Identity derives the request identity. A superadmin entry always wins,
// then admin, then user.
func (s *Session) Identity() Identity {
	if s == nil {
		return Anonymous{}
	}
	switch {
	case s.Superadmin != nil:
		return Superadmin{ID: s.Superadmin.ID, Role: s.Superadmin.Role}
	case s.Admin != nil:
		return Admin{ID: s.Admin.ID, TenantID: s.Admin.TenantID}
	case s.User != nil:
		return User{ID: s.User.ID, TenantID: s.User.TenantID}
	default:
		return Anonymous{}
	}
}

// Email returns the address of the active principal, if any.
func (s *Session) Email() string {
	if s == nil {
		return ""
	}
	switch {
	case s.Superadmin != nil:
		return s.Superadmin.Email
	case s.Admin != nil:
		return s.Admin.Email
	case s.User != nil:
		return s.User.Email
	}
	return ""
}

// AddFlash queues a message for the next page.
func (s *Session) AddFlash(level, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
}

// TakeFlashes returns and clears the queued messages.
func (s *Session) TakeFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}

// Regenerate requests a fresh session id on the next save. The old id is
// deleted from the store.
func (s *Session) Regenerate() {
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = ""
}

// PreviousID is the id abandoned by Regenerate.
func (s *Session) PreviousID() string { return s.previousID }

// ClearPreviousID is called once the old id has been removed.
func (s *Session) ClearPreviousID() { s.previousID = "" }

// Destroy drops every identity entry and marks the session for deletion.
func (s *Session) Destroy() {
	s.Superadmin = nil
	s.Admin = nil
	s.User = nil
	s.CSRFToken = ""
	s.Flashes = nil
	s.destroyed = true
}

// Destroyed reports whether Destroy was called during this request.
func (s *Session) Destroyed() bool { return s.destroyed }
