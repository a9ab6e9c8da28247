package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

func testRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		LoginRoutes: []string{"/admin/login", "/api/v1/auth/token"},
		APIPrefixes: []string{"/api/"},
		HeavyPaths:  []string{"/export"},
		Whitelist:   []string{"10.1.0.0/16"},
		Blacklist:   []string{"203.0.113.9"},
	}
}

func newTestLimiter(store *memoryRateStore, bl *stubBlacklist, clock *fakeClock) *rateLimitService {
	return newRateLimitService(store, bl, testRateLimitConfig(), zerolog.Nop(), clock.Now)
}

func TestRateLimit_LoginWindowMonotonic(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestLimiter(newMemoryRateStore(), &stubBlacklist{}, clock)
	req := ports.RateLimitRequest{IP: "198.51.100.7", Path: "/admin/login", Method: "POST"}

	for n := 1; n <= 6; n++ {
		d := svc.Check(context.Background(), req)
		if d.Class != domain.ClassLogin {
			t.Fatalf("request %d: expected login class, got %s", n, d.Class)
		}
		wantAllowed := n <= 5
		if d.Allowed != wantAllowed {
			t.Fatalf("request %d: allowed=%v, want %v", n, d.Allowed, wantAllowed)
		}
		if wantAllowed && d.Remaining != 5-n {
			t.Fatalf("request %d: remaining=%d, want %d", n, d.Remaining, 5-n)
		}
		if !wantAllowed && d.RetryAfter <= 0 {
			t.Fatalf("request %d: expected retry_after > 0, got %d", n, d.RetryAfter)
		}
		clock.Advance(time.Minute)
	}
}

func TestRateLimit_WindowResets(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := newMemoryRateStore()
	svc := newTestLimiter(store, &stubBlacklist{}, clock)
	req := ports.RateLimitRequest{IP: "198.51.100.7", Path: "/admin/login", Method: "POST"}

	for i := 0; i < 7; i++ {
		svc.Check(context.Background(), req)
	}
	clock.Advance(901 * time.Second)

	d := svc.Check(context.Background(), req)
	if !d.Allowed {
		t.Fatalf("expected fresh window to allow")
	}
	if got := store.records["login:198.51.100.7"].Attempts; got != 1 {
		t.Fatalf("expected attempts=1 after reset, got %d", got)
	}
	if d.Remaining != 4 {
		t.Fatalf("expected remaining=4, got %d", d.Remaining)
	}
}

func TestRateLimit_GeneralQuotaHeaders(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestLimiter(newMemoryRateStore(), &stubBlacklist{}, clock)
	req := ports.RateLimitRequest{IP: "198.51.100.8", Path: "/blog", Method: "GET"}

	for n := 1; n <= 120; n++ {
		d := svc.Check(context.Background(), req)
		if !d.Allowed {
			t.Fatalf("request %d unexpectedly denied", n)
		}
		if d.Remaining != 120-n {
			t.Fatalf("request %d: remaining %d, want %d", n, d.Remaining, 120-n)
		}
	}
	d := svc.Check(context.Background(), req)
	if d.Allowed {
		t.Fatalf("request 121 should exceed the general quota")
	}
	if d.Limit != 120 || d.Remaining != 0 {
		t.Fatalf("unexpected limit/remaining: %d/%d", d.Limit, d.Remaining)
	}
}

func TestRateLimit_SixtyFirstAPIRequestDenied(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestLimiter(newMemoryRateStore(), &stubBlacklist{}, clock)
	req := ports.RateLimitRequest{IP: "198.51.100.8", Path: "/api/v1/me", Method: "GET"}

	for n := 1; n <= 60; n++ {
		clock.Advance(500 * time.Millisecond)
		d := svc.Check(context.Background(), req)
		if !d.Allowed || d.Remaining != 60-n {
			t.Fatalf("request %d: allowed=%v remaining=%d", n, d.Allowed, d.Remaining)
		}
	}
	d := svc.Check(context.Background(), req)
	if d.Allowed || d.Class != domain.ClassAPI || d.RetryAfter <= 0 {
		t.Fatalf("request 61 should be limited, got %+v", d)
	}
}

func TestRateLimit_LoginBeatsAPIPrefix(t *testing.T) {
	svc := newTestLimiter(newMemoryRateStore(), &stubBlacklist{}, &fakeClock{t: time.Now()})

	req := ports.RateLimitRequest{IP: "198.51.100.1", Path: "/api/v1/auth/token", Method: "POST"}
	if got := svc.Classify(req); got != domain.ClassLogin {
		t.Fatalf("expected login, got %s", got)
	}
	req.Method = "GET"
	if got := svc.Classify(req); got != domain.ClassAPI {
		t.Fatalf("expected api for GET, got %s", got)
	}
}

func TestRateLimit_ClassificationOrder(t *testing.T) {
	svc := newTestLimiter(newMemoryRateStore(), &stubBlacklist{}, &fakeClock{t: time.Now()})

	cases := []struct {
		name string
		req  ports.RateLimitRequest
		want domain.RouteClass
	}{
		{"api prefix", ports.RateLimitRequest{Path: "/api/v1/posts/42", Method: "GET", AJAX: true}, domain.ClassAPI},
		{"heavy substring", ports.RateLimitRequest{Path: "/admin/reports/export", Method: "GET", AJAX: true}, domain.ClassHeavy},
		{"ajax", ports.RateLimitRequest{Path: "/admin/widgets", Method: "GET", AJAX: true}, domain.ClassAJAX},
		{"general", ports.RateLimitRequest{Path: "/admin/widgets", Method: "GET"}, domain.ClassGeneral},
		{"login requires post", ports.RateLimitRequest{Path: "/admin/login", Method: "GET"}, domain.ClassGeneral},
		{"login is exact", ports.RateLimitRequest{Path: "/admin/login/", Method: "POST"}, domain.ClassGeneral},
	}
	for _, tc := range cases {
		if got := svc.Classify(tc.req); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestRateLimit_Identifier(t *testing.T) {
	cases := []struct {
		class domain.RouteClass
		path  string
		want  string
	}{
		{domain.ClassLogin, "/admin/login", "login:1.2.3.4"},
		{domain.ClassAPI, "/api/v1/posts/42/comments/7", "api:1.2.3.4:/api/v1/posts/comments"},
		{domain.ClassHeavy, "/export", "global:1.2.3.4"},
		{domain.ClassGeneral, "/", "global:1.2.3.4"},
	}
	for _, tc := range cases {
		if got := Identifier(tc.class, "1.2.3.4", tc.path); got != tc.want {
			t.Fatalf("Identifier(%s, %s) = %s, want %s", tc.class, tc.path, got, tc.want)
		}
	}
}

func TestRateLimit_LoopbackAndWhitelistBypass(t *testing.T) {
	store := newMemoryRateStore()
	svc := newTestLimiter(store, &stubBlacklist{}, &fakeClock{t: time.Now()})

	for _, ip := range []string{"127.0.0.1", "::1", "10.1.44.2"} {
		for i := 0; i < 10; i++ {
			d := svc.Check(context.Background(), ports.RateLimitRequest{IP: ip, Path: "/admin/login", Method: "POST"})
			if !d.Allowed || !d.Whitelisted {
				t.Fatalf("%s should bypass the limiter", ip)
			}
		}
	}
	if len(store.records) != 0 {
		t.Fatalf("whitelisted requests must not be counted")
	}
}

func TestRateLimit_ForwardedLoopbackFromRemotePeerIsCounted(t *testing.T) {
	store := newMemoryRateStore()
	svc := newTestLimiter(store, &stubBlacklist{}, &fakeClock{t: time.Now()})
	req := ports.RateLimitRequest{IP: "127.0.0.1", RemoteIP: "198.51.100.20", Path: "/admin/login", Method: "POST"}

	for n := 1; n <= 5; n++ {
		if d := svc.Check(context.Background(), req); !d.Allowed || d.Whitelisted {
			t.Fatalf("attempt %d: expected a counted request, got %+v", n, d)
		}
	}
	if d := svc.Check(context.Background(), req); d.Allowed {
		t.Fatalf("sixth attempt should be limited")
	}

	local := ports.RateLimitRequest{IP: "127.0.0.1", RemoteIP: "::1", Path: "/admin/login", Method: "POST"}
	if d := svc.Check(context.Background(), local); !d.Whitelisted {
		t.Fatalf("loopback over a loopback connection should bypass")
	}
}

func TestRateLimit_Blacklist(t *testing.T) {
	bl := &stubBlacklist{banned: map[string]bool{"192.0.2.50": true}}
	svc := newTestLimiter(newMemoryRateStore(), bl, &fakeClock{t: time.Now()})

	for _, ip := range []string{"203.0.113.9", "192.0.2.50"} {
		d := svc.Check(context.Background(), ports.RateLimitRequest{IP: ip, Path: "/", Method: "GET"})
		if d.Allowed || !d.Blacklisted {
			t.Fatalf("%s should be blacklisted", ip)
		}
	}
}

func TestRateLimit_BlacklistErrorFailsOpen(t *testing.T) {
	bl := &stubBlacklist{err: errStoreDown}
	svc := newTestLimiter(newMemoryRateStore(), bl, &fakeClock{t: time.Now()})

	d := svc.Check(context.Background(), ports.RateLimitRequest{IP: "192.0.2.50", Path: "/", Method: "GET"})
	if !d.Allowed || d.Blacklisted {
		t.Fatalf("blacklist outage must not deny traffic: %+v", d)
	}
}

func TestRateLimit_CounterErrorFailsOpen(t *testing.T) {
	store := newMemoryRateStore()
	store.hitErr = errStoreDown
	store.purgeErr = errStoreDown
	svc := newTestLimiter(store, &stubBlacklist{}, &fakeClock{t: time.Now()})

	d := svc.Check(context.Background(), ports.RateLimitRequest{IP: "192.0.2.1", Path: "/", Method: "GET"})
	if !d.Allowed {
		t.Fatalf("counter outage must not deny traffic")
	}
}

func TestRateLimit_PurgesBeforeEveryCheck(t *testing.T) {
	store := newMemoryRateStore()
	svc := newTestLimiter(store, &stubBlacklist{}, &fakeClock{t: time.Now()})

	for i := 0; i < 3; i++ {
		svc.Check(context.Background(), ports.RateLimitRequest{IP: "192.0.2.1", Path: "/", Method: "GET"})
	}
	if store.purges != 3 {
		t.Fatalf("expected 3 purges, got %d", store.purges)
	}
}
