package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, err := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "clinic-a", KindPatient, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var payload map[string]string
	if err := got.Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload["name"] != "Ada" {
		t.Errorf("expected name Ada, got %q", payload["name"])
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "clinic-a", KindPatient, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreTenantSeparation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := s.Get(ctx, "clinic-b", KindPatient, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestMemoryStorePutIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, _ := NewRecord("clinic-a", KindPayment, "receipt:R-100", map[string]int{"amount": 500})
	if err := s.PutIfAbsent(ctx, first); err != nil {
		t.Fatalf("first PutIfAbsent: %v", err)
	}

	second, _ := NewRecord("clinic-a", KindPayment, "receipt:R-100", map[string]int{"amount": 999})
	if err := s.PutIfAbsent(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := s.Get(ctx, "clinic-a", KindPayment, "receipt:R-100")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var payload map[string]int
	_ = got.Decode(&payload)
	if payload["amount"] != 500 {
		t.Errorf("loser should not overwrite winner, got amount %d", payload["amount"])
	}
}

func TestMemoryStorePutPreservesCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	s.nowFunc = func() time.Time { return now }

	rec, _ := NewRecord("clinic-a", KindBill, "b1", map[string]string{"status": "issued"})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	now = base.Add(time.Hour)
	update, _ := NewRecord("clinic-a", KindBill, "b1", map[string]string{"status": "paid"})
	if err := s.Put(ctx, update); err != nil {
		t.Fatalf("update Put: %v", err)
	}

	got, _ := s.Get(ctx, "clinic-a", KindBill, "b1")
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt changed on update: %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("UpdatedAt not advanced: %v", got.UpdatedAt)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindQueueEntry, "q1", map[string]string{})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "clinic-a", KindQueueEntry, "q1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "clinic-a", KindQueueEntry, "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreQueryOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	s.nowFunc = func() time.Time { return now }

	for i, id := range []string{"c", "a", "b"} {
		now = base.Add(time.Duration(i) * time.Minute)
		rec, _ := NewRecord("clinic-a", KindVitals, id, map[string]string{})
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	// Different kind and tenant must not leak into the query.
	other, _ := NewRecord("clinic-a", KindPatient, "x", map[string]string{})
	_ = s.Put(ctx, other)
	foreign, _ := NewRecord("clinic-b", KindVitals, "y", map[string]string{})
	_ = s.Put(ctx, foreign)

	result, err := s.Query(ctx, "clinic-a", KindVitals)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result))
	}
	want := []string{"c", "a", "b"} // insertion order by CreatedAt
	for i, rec := range result {
		if rec.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], rec.ID)
		}
	}
}

func TestMemoryStoreCopyIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, _ := NewRecord("clinic-a", KindPatient, "p1", map[string]string{"name": "Ada"})
	_ = s.Put(ctx, rec)

	got, _ := s.Get(ctx, "clinic-a", KindPatient, "p1")
	for i := range got.Data {
		got.Data[i] = 'x'
	}

	fresh, _ := s.Get(ctx, "clinic-a", KindPatient, "p1")
	var payload map[string]string
	if err := fresh.Decode(&payload); err != nil {
		t.Fatalf("stored record corrupted by caller mutation: %v", err)
	}
}
