package guard

import "sort"

// Whitelist is the set of method ids allowed without a permission check.
// Matching is exact: case and whitespace are significant.
type Whitelist struct {
	ids map[string]struct{}
}

// NewWhitelist builds a whitelist from method ids of the form
// "ControllerShortName@Method".
func NewWhitelist(ids ...string) Whitelist {
	w := Whitelist{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		w.ids[id] = struct{}{}
	}
	return w
}

// DefaultWhitelist covers authentication, password reset, the dashboard,
// profile and two-factor self service, language switch and notifications.
func DefaultWhitelist() Whitelist {
	return NewWhitelist(
		"AuthController@ShowLogin",
		"AuthController@Login",
		"AuthController@Logout",
		"PasswordResetController@ShowRequest",
		"PasswordResetController@SendLink",
		"PasswordResetController@ShowReset",
		"PasswordResetController@Reset",
		"DashboardController@Index",
		"ProfileController@Show",
		"ProfileController@SwitchLanguage",
		"ProfileController@Notifications",
		"TwoFactorController@Show",
		"TwoFactorController@Enable",
		"TwoFactorController@Disable",
		"TwoFactorController@Verify",
	)
}

// Contains reports whether id is whitelisted.
func (w Whitelist) Contains(id string) bool {
	_, ok := w.ids[id]
	return ok
}

// IDs returns the whitelisted ids in sorted order.
func (w Whitelist) IDs() []string {
	out := make([]string, 0, len(w.ids))
	for id := range w.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
