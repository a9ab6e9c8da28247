package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

func newTestIdentityService(accounts *stubAccounts, tokens *stubTokens, auditor *recordingAuditor, now time.Time) *identityService {
	svc := NewIdentityService(accounts, tokens, auditor, zerolog.Nop()).(*identityService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestIdentity_SuperadminWinsOverAdmin(t *testing.T) {
	accounts := newStubAccounts()
	svc := newTestIdentityService(accounts, newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{
		Superadmin: &domain.SessionSuperadmin{ID: 1, Role: domain.RoleSuperadmin},
		Admin:      &domain.SessionAdmin{ID: 9, TenantID: 3},
		User:       &domain.SessionUser{ID: 4, TenantID: 3},
	}

	res, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeAuthenticated {
		t.Fatalf("expected authenticated, got %s", res.Outcome)
	}
	if _, ok := res.Identity.(domain.Superadmin); !ok {
		t.Fatalf("expected superadmin identity, got %T", res.Identity)
	}
	if accounts.adminCalls != 0 {
		t.Fatalf("superadmin resolution must not consult admin records")
	}
}

func TestIdentity_AdminMatchingTenant(t *testing.T) {
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, TenantID: 5, Active: true}
	svc := newTestIdentityService(accounts, newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 7, TenantID: 5}}
	res, err := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:     sess,
		Tenant:      &domain.Tenant{ID: 5},
		MultiTenant: true,
		AdminPanel:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeAuthenticated {
		t.Fatalf("expected authenticated, got %s", res.Outcome)
	}
	if got := res.Identity.(domain.Admin); got.TenantID != 5 {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestIdentity_AdminReassignedTenantIsAlwaysRejected(t *testing.T) {
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, TenantID: 7, Active: true}
	auditor := &recordingAuditor{}
	svc := newTestIdentityService(accounts, newStubTokens(), auditor, time.Now())

	for i := 0; i < 3; i++ {
		sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 7, TenantID: 5}}
		res, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if res.Outcome != ports.OutcomeTenantMismatch {
			t.Fatalf("request %d: expected tenant mismatch, got %s", i, res.Outcome)
		}
	}
	if accounts.adminCalls != 3 {
		t.Fatalf("expected admin record re-read on every request, got %d reads", accounts.adminCalls)
	}
	if !auditor.has(domain.EventTenantMismatch) {
		t.Fatalf("expected tenant mismatch security event")
	}
}

func TestIdentity_AdminRecordMissing(t *testing.T) {
	svc := newTestIdentityService(newStubAccounts(), newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 99, TenantID: 1}}
	res, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %s", res.Outcome)
	}
}

func TestIdentity_AdminOfOtherTenantOnHost(t *testing.T) {
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, TenantID: 5, Active: true}
	svc := newTestIdentityService(accounts, newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 7, TenantID: 5}}
	res, _ := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:     sess,
		Tenant:      &domain.Tenant{ID: 6},
		MultiTenant: true,
		AdminPanel:  true,
	})
	if res.Outcome != ports.OutcomeTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %s", res.Outcome)
	}
}

func TestIdentity_AdminWithoutTenantRejectedWhenMultiTenant(t *testing.T) {
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, TenantID: 0, Active: true}
	auditor := &recordingAuditor{}
	svc := newTestIdentityService(accounts, newStubTokens(), auditor, time.Now())

	sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 7}}
	res, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, MultiTenant: true, AdminPanel: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeTenantMismatch || !auditor.has(domain.EventTenantMismatch) {
		t.Fatalf("expected audited tenant mismatch, got %s", res.Outcome)
	}

	res, _ = svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
	if res.Outcome != ports.OutcomeAuthenticated {
		t.Fatalf("single-tenant mode should accept a tenant-less admin, got %s", res.Outcome)
	}
}

func TestIdentity_RememberTokenForTenantlessAdminRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, Active: true}
	tokens := newStubTokens()
	_ = tokens.Create(context.Background(), domain.RememberToken{
		TokenHash: HashToken("raw-token"),
		UserType:  domain.UserTypeAdmin,
		OwnerID:   7,
		ExpiresAt: now.Add(time.Hour),
	})
	svc := newTestIdentityService(accounts, tokens, &recordingAuditor{}, now)

	res, err := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:       &domain.Session{},
		RememberToken: "raw-token",
		MultiTenant:   true,
		AdminPanel:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %s", res.Outcome)
	}
}

func TestIdentity_AdminStoreErrorIsReturned(t *testing.T) {
	accounts := newStubAccounts()
	accounts.err = errStoreDown
	svc := newTestIdentityService(accounts, newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{Admin: &domain.SessionAdmin{ID: 7, TenantID: 5}}
	_, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestIdentity_UserDeniedInAdminPanel(t *testing.T) {
	svc := newTestIdentityService(newStubAccounts(), newStubTokens(), &recordingAuditor{}, time.Now())

	sess := &domain.Session{User: &domain.SessionUser{ID: 3, TenantID: 1}}
	res, _ := svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: true})
	if res.Outcome != ports.OutcomeAccessDenied {
		t.Fatalf("expected access denied, got %s", res.Outcome)
	}

	res, _ = svc.Resolve(context.Background(), ports.ResolveInput{Session: sess, AdminPanel: false})
	if res.Outcome != ports.OutcomeAuthenticated {
		t.Fatalf("expected user allowed outside admin panel, got %s", res.Outcome)
	}
}

func TestIdentity_AnonymousWithoutCookie(t *testing.T) {
	svc := newTestIdentityService(newStubAccounts(), newStubTokens(), &recordingAuditor{}, time.Now())

	res, err := svc.Resolve(context.Background(), ports.ResolveInput{Session: &domain.Session{}, AdminPanel: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeAnonymous {
		t.Fatalf("expected anonymous, got %s", res.Outcome)
	}
	if res.Identity.Kind() != domain.KindAnonymous {
		t.Fatalf("expected anonymous identity, got %s", res.Identity.Kind())
	}
}

func TestIdentity_RememberTokenRestoresAdmin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accounts := newStubAccounts()
	accounts.admins[7] = &domain.AdminAccount{ID: 7, TenantID: 5, Email: "ana@example.com", Active: true}
	tokens := newStubTokens()
	_ = tokens.Create(context.Background(), domain.RememberToken{
		TokenHash: HashToken("raw-token"),
		UserType:  domain.UserTypeAdmin,
		OwnerID:   7,
		TenantID:  5,
		ExpiresAt: now.Add(time.Hour),
	})
	svc := newTestIdentityService(accounts, tokens, &recordingAuditor{}, now)

	sess := &domain.Session{}
	res, err := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:       sess,
		RememberToken: "raw-token",
		Tenant:        &domain.Tenant{ID: 5},
		MultiTenant:   true,
		AdminPanel:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.OutcomeAuthenticated || !res.Restored {
		t.Fatalf("expected restored authentication, got %s restored=%v", res.Outcome, res.Restored)
	}
	if sess.Admin == nil || sess.Admin.Email != "ana@example.com" {
		t.Fatalf("expected session admin entry populated, got %+v", sess.Admin)
	}
}

func TestIdentity_RememberTokenUserDeniedInAdminPanel(t *testing.T) {
	now := time.Now()
	accounts := newStubAccounts()
	accounts.users[3] = &domain.UserAccount{ID: 3, TenantID: 5, Active: true}
	tokens := newStubTokens()
	_ = tokens.Create(context.Background(), domain.RememberToken{
		TokenHash: HashToken("user-token"),
		UserType:  domain.UserTypeUser,
		OwnerID:   3,
		TenantID:  5,
		ExpiresAt: now.Add(time.Hour),
	})
	svc := newTestIdentityService(accounts, tokens, &recordingAuditor{}, now)

	res, _ := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:       &domain.Session{},
		RememberToken: "user-token",
		AdminPanel:    true,
	})
	if res.Outcome != ports.OutcomeAccessDenied {
		t.Fatalf("expected access denied, got %s", res.Outcome)
	}
	if _, ok := res.Identity.(domain.User); !ok {
		t.Fatalf("expected user identity, got %T", res.Identity)
	}
}

func TestIdentity_RememberTokenUnknown(t *testing.T) {
	svc := newTestIdentityService(newStubAccounts(), newStubTokens(), &recordingAuditor{}, time.Now())

	res, _ := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:       &domain.Session{},
		RememberToken: "nope",
		AdminPanel:    true,
	})
	if res.Outcome != ports.OutcomeRestoreFailed {
		t.Fatalf("expected restore failed, got %s", res.Outcome)
	}
}

func TestIdentity_RememberTokenExpiredIsDeleted(t *testing.T) {
	now := time.Now()
	tokens := newStubTokens()
	_ = tokens.Create(context.Background(), domain.RememberToken{
		TokenHash: HashToken("old"),
		UserType:  domain.UserTypeSuperadmin,
		OwnerID:   1,
		ExpiresAt: now.Add(-time.Minute),
	})
	svc := newTestIdentityService(newStubAccounts(), tokens, &recordingAuditor{}, now)

	res, _ := svc.Resolve(context.Background(), ports.ResolveInput{
		Session:       &domain.Session{},
		RememberToken: "old",
		AdminPanel:    true,
	})
	if res.Outcome != ports.OutcomeRestoreFailed {
		t.Fatalf("expected restore failed, got %s", res.Outcome)
	}
	if len(tokens.deleted) != 1 {
		t.Fatalf("expected expired token deleted")
	}
}
