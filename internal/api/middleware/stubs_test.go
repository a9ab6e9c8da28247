package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

var errStoreDown = errors.New("store down")

var testPaths = Paths{Superadmin: "/musedock", Tenant: "/admin"}

func newContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

type recordingAuditor struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (a *recordingAuditor) Record(ev domain.SecurityEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) has(t domain.SecurityEventType) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ev := range a.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

type stubTenants struct {
	byHost map[string]*domain.Tenant
	err    error
}

func (s *stubTenants) FindByDomain(_ context.Context, host string) (*domain.Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.byHost[host]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (s *stubTenants) FindByID(context.Context, int64) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

type stubIdentities struct {
	res   ports.Resolution
	err   error
	input ports.ResolveInput
}

func (s *stubIdentities) Resolve(_ context.Context, in ports.ResolveInput) (ports.Resolution, error) {
	s.input = in
	return s.res, s.err
}

type stubPermissions struct {
	perms    map[string]bool
	roles    map[string]bool
	err      error
	calls    int
	userType domain.UserType
}

func (s *stubPermissions) UserHasPermissionWithType(_ context.Context, _ int64, typ domain.UserType, perm string, _ int64) (bool, error) {
	s.calls++
	s.userType = typ
	return s.perms[perm], s.err
}

func (s *stubPermissions) UserHasRole(ctx context.Context, userID int64, role string, tenantID int64) (bool, error) {
	return s.UserHasRoleWithType(ctx, userID, domain.UserTypeAdmin, role, tenantID)
}

func (s *stubPermissions) UserHasRoleWithType(_ context.Context, _ int64, typ domain.UserType, role string, _ int64) (bool, error) {
	s.calls++
	s.userType = typ
	return s.roles[role], s.err
}

type memorySessions struct {
	mu    sync.Mutex
	data  map[string]domain.Session
	saved int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: make(map[string]domain.Session)}
}

func (m *memorySessions) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.data[id]; ok {
		cp := s
		return &cp, nil
	}
	return &domain.Session{ID: "fresh-session", CSRFToken: "fresh-token"}, nil
}

func (m *memorySessions) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev := s.PreviousID(); prev != "" {
		delete(m.data, prev)
		s.ClearPreviousID()
	}
	if s.ID == "" {
		s.ID = "regenerated-session"
	}
	m.saved++
	m.data[s.ID] = *s
	return nil
}

func (m *memorySessions) Destroy(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, s.ID)
	delete(m.data, s.PreviousID())
	return nil
}

type memoryRateStore struct {
	records map[string]domain.RateLimitRecord
}

func (m *memoryRateStore) Purge(_ context.Context, now time.Time) error {
	for id, r := range m.records {
		if !r.Valid(now) {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *memoryRateStore) Hit(_ context.Context, id string, window time.Duration, now time.Time) (domain.RateLimitRecord, error) {
	r, ok := m.records[id]
	if !ok || !r.Valid(now) {
		r = domain.RateLimitRecord{Identifier: id, ExpiresAt: now.Add(window)}
	}
	r.Attempts++
	m.records[id] = r
	return r, nil
}

type noBlacklist struct{}

func (noBlacklist) IsBlacklisted(context.Context, string, time.Time) (bool, error) { return false, nil }
func (noBlacklist) List(context.Context, time.Time) ([]domain.BlacklistEntry, error) {
	return nil, nil
}
func (noBlacklist) Add(context.Context, domain.BlacklistEntry) error { return nil }
func (noBlacklist) Remove(context.Context, string) error             { return nil }

type stubLimiter struct {
	decision domain.RateLimitDecision
}

func (s stubLimiter) Check(context.Context, ports.RateLimitRequest) domain.RateLimitDecision {
	return s.decision
}
