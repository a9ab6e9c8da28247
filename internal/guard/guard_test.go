package guard

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
)

const reportsSource = `package admin

type Controller struct{}

func (c *Controller) CheckPermission(ctx any, perm string) error { return nil }

func (c *Controller) Helper() {}

type ReportsController struct{ Controller }

func (r *ReportsController) Index(ctx any) error {
	if err := r.CheckPermission(ctx, "reports.view"); err != nil {
		return err
	}
	return nil
}

func (r *ReportsController) Export(ctx any) error {
	return r.checkAnyPermission(ctx, "reports.export", "reports.view")
}

func (r *ReportsController) Purge(ctx any) error {
	return func() error { return r.REQUIRESUPERADMIN(ctx) }()
}

func (r *ReportsController) ExportAll(ctx any) error {
	return nil
}

func (r *ReportsController) render(ctx any) error { return nil }

func (r ReportsController) Summary(ctx any) error {
	return r.CheckAllPermissions(ctx, "reports.view", "reports.export")
}
`

const authSource = `package admin

type AuthController struct{ Controller }

func (a *AuthController) Login(ctx any) error { return nil }

func (a *AuthController) Logout(ctx any) error { return nil }
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"reports_controller.go":      {Data: []byte(reportsSource)},
		"auth_controller.go":         {Data: []byte(authSource)},
		"reports_controller_test.go": {Data: []byte("package admin\n\nfunc (r *ReportsController) Hidden() {}\n")},
	}
}

func mustScan(t *testing.T) *Manifest {
	t.Helper()
	m, err := Scan(testFS(), "*_controller.go")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return m
}

// countingInspector counts lookups to observe memoization.
type countingInspector struct {
	inner Inspector
	calls map[string]int
}

func (c *countingInspector) Protected(id string) (bool, error) {
	c.calls[id]++
	return c.inner.Protected(id)
}

func TestScan_DetectsProtection(t *testing.T) {
	m := mustScan(t)

	cases := map[string]bool{
		"ReportsController@Index":     true,
		"ReportsController@Export":    true,
		"ReportsController@Purge":     true,
		"ReportsController@Summary":   true,
		"ReportsController@ExportAll": false,
		"AuthController@Login":        false,
	}
	for id, want := range cases {
		got, err := m.Protected(id)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", id, err)
		}
		if got != want {
			t.Fatalf("%s: protected=%v, want %v", id, got, want)
		}
	}

	if _, err := m.Protected("Controller@Helper"); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("base controller methods must not be scanned, got %v", err)
	}
}

func TestScan_NoSources(t *testing.T) {
	if _, err := Scan(fstest.MapFS{}, "*_controller.go"); err == nil {
		t.Fatalf("expected error when no sources match")
	}
}

func TestScan_ParseError(t *testing.T) {
	fsys := fstest.MapFS{"broken_controller.go": {Data: []byte("package admin\nfunc (")}}
	if _, err := Scan(fsys, "*_controller.go"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestGate_DeniesUnprotectedOnFirstCallAndMemoizes(t *testing.T) {
	insp := &countingInspector{inner: mustScan(t), calls: map[string]int{}}
	gate := NewGate(NewWhitelist(), insp, zerolog.Nop())

	if gate.Handle("ReportsController", "ExportAll") {
		t.Fatalf("unprotected method must be denied on first invocation")
	}
	if gate.Handle("admin.(*ReportsController)", "ExportAll") {
		t.Fatalf("unprotected method must stay denied")
	}
	if insp.calls["ReportsController@ExportAll"] != 1 {
		t.Fatalf("expected a single inspection, got %d", insp.calls["ReportsController@ExportAll"])
	}

	if !gate.Handle("ReportsController", "Index") {
		t.Fatalf("protected method must be allowed")
	}
}

func TestGate_WhitelistIsExact(t *testing.T) {
	gate := NewGate(NewWhitelist("AuthController@Login"), mustScan(t), zerolog.Nop())

	if !gate.Allowed("AuthController@Login") {
		t.Fatalf("whitelisted id must be allowed")
	}
	for _, id := range []string{
		"authController@Login",
		"AuthController@login",
		" AuthController@Login",
		"AuthController@Login ",
		"AuthController @Login",
	} {
		if gate.Allowed(id) {
			t.Fatalf("%q must not match the whitelist", id)
		}
	}
	if gate.Allowed("AuthController@Logout") {
		t.Fatalf("non-whitelisted unprotected method must be denied")
	}
}

func TestGate_FailsClosed(t *testing.T) {
	gate := NewGate(NewWhitelist("AuthController@Login"), FailedInspector{Err: errors.New("scan failed")}, zerolog.Nop())

	if gate.Allowed("ReportsController@Index") {
		t.Fatalf("inspector failure must deny")
	}
	if !gate.Allowed("AuthController@Login") {
		t.Fatalf("whitelist must still apply when scanning failed")
	}
	if gate.Allowed("") {
		t.Fatalf("empty id must deny")
	}
	if gate.Allowed("GhostController@Run") {
		t.Fatalf("unknown method must deny")
	}
}

func TestAudit_ListsUnprotectedEndpoints(t *testing.T) {
	got := Audit(mustScan(t), NewWhitelist("AuthController@Login"))

	var ids []string
	for _, info := range got {
		ids = append(ids, info.ID())
	}
	want := []string{"AuthController@Logout", "ReportsController@ExportAll"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

type WidgetController struct{}

func (w *WidgetController) Index() error { return nil }

func (w WidgetController) Show() error { return nil }

func TestMethodID(t *testing.T) {
	ctrl := &WidgetController{}

	if got := MethodID(ctrl.Index); got != "WidgetController@Index" {
		t.Fatalf("pointer receiver: got %q", got)
	}
	if got := MethodID(ctrl.Show); got != "WidgetController@Show" {
		t.Fatalf("value receiver: got %q", got)
	}
	if got := MethodID(func() error { return nil }); got != "" {
		t.Fatalf("closure must have no id, got %q", got)
	}
	if got := MethodID(nil); got != "" {
		t.Fatalf("nil must have no id, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		controller, method, want string
	}{
		{"ReportsController", "Export", "ReportsController@Export"},
		{"admin.(*ReportsController)", "Export", "ReportsController@Export"},
		{"example.com/app/internal/api/admin.ReportsController", "X", "ReportsController@X"},
		{"", "Export", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.controller, tc.method); got != tc.want {
			t.Fatalf("Normalize(%q, %q) = %q, want %q", tc.controller, tc.method, got, tc.want)
		}
	}
}
