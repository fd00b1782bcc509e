package vitals

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Service struct {
	repo  Repository
	guard *store.Guard
}

func NewService(repo Repository, guard *store.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

// Record validates and persists a reading for an existing patient, attaching
// the severity analysis computed at ingestion time.
func (s *Service) Record(ctx context.Context, tenantID string, reading *Reading) error {
	if reading.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if !reading.hasMeasurement() {
		return fmt.Errorf("at least one measurement is required")
	}
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, reading.PatientID); err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}

	reading.TenantID = tenantID
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}
	reading.CreatedAt = time.Now().UTC()

	analysis := Classify(*reading)
	reading.Analysis = &analysis

	return s.repo.Create(ctx, reading)
}

func (s *Service) GetReading(ctx context.Context, tenantID, id string) (*Reading, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListByPatient returns a patient's readings, newest first. The patient is
// resolved through the guard so a cross-tenant patient id reads as absent.
func (s *Service) ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Reading, error) {
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, patientID); err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	readings, err := s.repo.ListByPatient(ctx, tenantID, patientID)
	if err != nil {
		return nil, err
	}
	sortByRecordedAtDesc(readings)
	return readings, nil
}

func (r *Reading) hasMeasurement() bool {
	return r.Systolic != nil || r.Diastolic != nil || r.TemperatureC != nil ||
		r.PulseBPM != nil || r.RespirationRPM != nil || r.SpO2Percent != nil ||
		r.GlucoseMGDL != nil || r.WeightKG != nil || r.HeightCM != nil
}

func sortByRecordedAtDesc(readings []*Reading) {
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].RecordedAt.After(readings[j].RecordedAt)
	})
}
