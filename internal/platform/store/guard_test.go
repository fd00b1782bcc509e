package store

import (
	"context"
	"errors"
	"testing"
)

func TestGuardResolveOwnTenant(t *testing.T) {
	s := NewMemoryStore()
	g := NewGuard(s)
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := g.Resolve(ctx, "clinic-a", KindPatient, "p1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("expected p1, got %s", got.ID)
	}
}

// A record owned by another tenant reads as absent, never as forbidden. The
// response must not reveal whether the id exists elsewhere.
func TestGuardCrossTenantReadsAsNotFound(t *testing.T) {
	s := NewMemoryStore()
	g := NewGuard(s)
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	_ = s.Put(ctx, rec)

	_, err := g.Resolve(ctx, "clinic-b", KindPatient, "p1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for cross-tenant access, got %v", err)
	}
}

func TestGuardEmptyIdentifiers(t *testing.T) {
	g := NewGuard(NewMemoryStore())
	ctx := context.Background()

	if _, err := g.Resolve(ctx, "", KindPatient, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty tenant: expected ErrNotFound, got %v", err)
	}
	if _, err := g.Resolve(ctx, "clinic-a", KindPatient, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty id: expected ErrNotFound, got %v", err)
	}
}

func TestGuardResolveInto(t *testing.T) {
	s := NewMemoryStore()
	g := NewGuard(s)
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	_ = s.Put(ctx, rec)

	var payload map[string]string
	if err := g.ResolveInto(ctx, "clinic-a", KindPatient, "p1", &payload); err != nil {
		t.Fatalf("ResolveInto: %v", err)
	}
	if payload["name"] != "Ada" {
		t.Errorf("expected Ada, got %q", payload["name"])
	}
}
