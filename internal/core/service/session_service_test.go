package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

type memorySessionStore struct {
	data map[string]domain.Session
}

func (m *memorySessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memorySessionStore) Set(_ context.Context, s *domain.Session, _ time.Duration) error {
	m.data[s.ID] = *s
	return nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func TestSessionService_LoadFreshCarriesCSRFToken(t *testing.T) {
	svc := NewSessionService(&memorySessionStore{data: map[string]domain.Session{}}, time.Hour, zerolog.Nop())

	sess, err := svc.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sess.ID == "" || sess.ID == "unknown" {
		t.Fatalf("expected a freshly generated id, got %q", sess.ID)
	}
	if sess.CSRFToken == "" {
		t.Fatalf("fresh session must carry a csrf token")
	}
}

func TestSessionService_RegenerateDropsOldID(t *testing.T) {
	store := &memorySessionStore{data: map[string]domain.Session{}}
	svc := NewSessionService(store, time.Hour, zerolog.Nop())

	sess, _ := svc.Load(context.Background(), "")
	if err := svc.Save(context.Background(), sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	oldID := sess.ID

	sess.Admin = &domain.SessionAdmin{ID: 7, TenantID: 5}
	sess.Regenerate()
	if err := svc.Save(context.Background(), sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if sess.ID == oldID || sess.ID == "" {
		t.Fatalf("expected new id after regenerate")
	}
	if _, ok := store.data[oldID]; ok {
		t.Fatalf("old session id must be deleted")
	}
	loaded, err := svc.Load(context.Background(), sess.ID)
	if err != nil || loaded.Admin == nil || loaded.Admin.ID != 7 {
		t.Fatalf("expected admin entry to survive regenerate, got %+v %v", loaded, err)
	}
}

func TestSessionService_Destroy(t *testing.T) {
	store := &memorySessionStore{data: map[string]domain.Session{}}
	svc := NewSessionService(store, time.Hour, zerolog.Nop())

	sess, _ := svc.Load(context.Background(), "")
	_ = svc.Save(context.Background(), sess)
	sess.Destroy()
	if err := svc.Destroy(context.Background(), sess); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected empty store, got %d sessions", len(store.data))
	}
}
