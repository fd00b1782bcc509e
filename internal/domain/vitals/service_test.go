package vitals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/platform/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(NewRepo(st), store.NewGuard(st)), st
}

func seedPatient(t *testing.T, st store.Store, tenantID, id string) {
	t.Helper()
	rec, err := store.NewRecord(tenantID, store.KindPatient, id, map[string]string{"first_name": "Ada"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := st.Put(context.Background(), rec); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
}

func TestRecordAttachesAnalysis(t *testing.T) {
	svc, st := newTestService(t)
	seedPatient(t, st, "clinic-a", "p1")

	r := &Reading{PatientID: "p1", Systolic: f(185), Diastolic: f(125)}
	if err := svc.Record(context.Background(), "clinic-a", r); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if r.Analysis == nil || !r.Analysis.HasCritical() {
		t.Errorf("expected critical analysis, got %+v", r.Analysis)
	}

	got, err := svc.GetReading(context.Background(), "clinic-a", r.ID)
	if err != nil {
		t.Fatalf("GetReading: %v", err)
	}
	if got.Analysis == nil || !got.Analysis.HasCritical() {
		t.Error("analysis not persisted with the reading")
	}
}

func TestRecordRejectsUnknownPatient(t *testing.T) {
	svc, _ := newTestService(t)
	r := &Reading{PatientID: "ghost", PulseBPM: f(70)}
	err := svc.Record(context.Background(), "clinic-a", r)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRejectsCrossTenantPatient(t *testing.T) {
	svc, st := newTestService(t)
	seedPatient(t, st, "clinic-a", "p1")

	r := &Reading{PatientID: "p1", PulseBPM: f(70)}
	err := svc.Record(context.Background(), "clinic-b", r)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestRecordRequiresMeasurement(t *testing.T) {
	svc, st := newTestService(t)
	seedPatient(t, st, "clinic-a", "p1")

	if err := svc.Record(context.Background(), "clinic-a", &Reading{PatientID: "p1"}); err == nil {
		t.Error("expected error for reading without measurements")
	}
}

func TestListByPatientNewestFirst(t *testing.T) {
	svc, st := newTestService(t)
	seedPatient(t, st, "clinic-a", "p1")

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := &Reading{PatientID: "p1", PulseBPM: f(70), RecordedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := svc.Record(context.Background(), "clinic-a", r); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	readings, err := svc.ListByPatient(context.Background(), "clinic-a", "p1")
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].RecordedAt.After(readings[i-1].RecordedAt) {
			t.Error("readings not sorted newest first")
		}
	}
}
