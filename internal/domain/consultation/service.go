package consultation

import (
	"context"
	"fmt"
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

// Create validates and persists a consultation for an existing patient.
// Two devices submitting consultations for the same patient with overlapping
// times are both accepted as independent records; there is no merge policy.
func (s *Service) Create(ctx context.Context, tenantID string, c *Consultation) error {
	if c.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, c.PatientID); err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	for i, rx := range c.Prescriptions {
		if rx.Medication == "" {
			return fmt.Errorf("prescription %d: medication is required", i+1)
		}
	}

	c.TenantID = tenantID
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	c.CreatedAt = time.Now().UTC()

	return s.repo.Create(ctx, c)
}

func (s *Service) GetConsultation(ctx context.Context, tenantID, id string) (*Consultation, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *Service) ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Consultation, error) {
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, patientID); err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	return s.repo.ListByPatient(ctx, tenantID, patientID)
}
