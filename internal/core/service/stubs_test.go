package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

var errStoreDown = errors.New("store down")

type stubAccounts struct {
	admins      map[int64]*domain.AdminAccount
	superadmins map[int64]*domain.SuperAdminAccount
	users       map[int64]*domain.UserAccount
	err         error
	adminCalls  int
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{
		admins:      make(map[int64]*domain.AdminAccount),
		superadmins: make(map[int64]*domain.SuperAdminAccount),
		users:       make(map[int64]*domain.UserAccount),
	}
}

func (s *stubAccounts) AdminByID(_ context.Context, id int64) (*domain.AdminAccount, error) {
	s.adminCalls++
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.admins[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *stubAccounts) AdminByEmail(_ context.Context, tenantID int64, email string) (*domain.AdminAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, a := range s.admins {
		if a.Email == email && a.TenantID == tenantID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccounts) SuperAdminByID(_ context.Context, id int64) (*domain.SuperAdminAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.superadmins[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *stubAccounts) SuperAdminByEmail(_ context.Context, email string) (*domain.SuperAdminAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, a := range s.superadmins {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccounts) UserByID(_ context.Context, id int64) (*domain.UserAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *u
	return &clone, nil
}

type tokenKey struct {
	userType domain.UserType
	hash     string
}

type stubTokens struct {
	tokens  map[tokenKey]domain.RememberToken
	deleted []string
}

func newStubTokens() *stubTokens {
	return &stubTokens{tokens: make(map[tokenKey]domain.RememberToken)}
}

func (s *stubTokens) Create(_ context.Context, t domain.RememberToken) error {
	s.tokens[tokenKey{t.UserType, t.TokenHash}] = t
	return nil
}

func (s *stubTokens) Find(_ context.Context, userType domain.UserType, hash string) (*domain.RememberToken, error) {
	t, ok := s.tokens[tokenKey{userType, hash}]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return &t, nil
}

func (s *stubTokens) Delete(_ context.Context, userType domain.UserType, hash string) error {
	k := tokenKey{userType, hash}
	if _, ok := s.tokens[k]; !ok {
		return domain.ErrTokenNotFound
	}
	delete(s.tokens, k)
	s.deleted = append(s.deleted, hash)
	return nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (a *recordingAuditor) Record(ev domain.SecurityEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) has(typ domain.SecurityEventType) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ev := range a.events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

// memoryRateStore is a RateLimitStore over a map.
type memoryRateStore struct {
	records  map[string]domain.RateLimitRecord
	hitErr   error
	purgeErr error
	purges   int
}

func newMemoryRateStore() *memoryRateStore {
	return &memoryRateStore{records: make(map[string]domain.RateLimitRecord)}
}

func (m *memoryRateStore) Purge(_ context.Context, now time.Time) error {
	m.purges++
	if m.purgeErr != nil {
		return m.purgeErr
	}
	for id, r := range m.records {
		if !r.Valid(now) {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *memoryRateStore) Hit(_ context.Context, id string, window time.Duration, now time.Time) (domain.RateLimitRecord, error) {
	if m.hitErr != nil {
		return domain.RateLimitRecord{}, m.hitErr
	}
	r, ok := m.records[id]
	if !ok || !r.Valid(now) {
		r = domain.RateLimitRecord{Identifier: id, Attempts: 0, ExpiresAt: now.Add(window)}
	}
	r.Attempts++
	m.records[id] = r
	return r, nil
}

type stubBlacklist struct {
	banned map[string]bool
	err    error
}

func (b *stubBlacklist) IsBlacklisted(_ context.Context, ip string, _ time.Time) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	return b.banned[ip], nil
}

func (b *stubBlacklist) List(context.Context, time.Time) ([]domain.BlacklistEntry, error) {
	return nil, nil
}

func (b *stubBlacklist) Add(context.Context, domain.BlacklistEntry) error { return nil }

func (b *stubBlacklist) Remove(context.Context, string) error { return nil }

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
