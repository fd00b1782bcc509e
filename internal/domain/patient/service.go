package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/oracle"
)

type Service struct {
	repo     Repository
	verifier oracle.Verifier // nil when no oracle is configured
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetVerifier attaches the identity-document verification oracle.
func (s *Service) SetVerifier(v oracle.Verifier) {
	s.verifier = v
}

// Register validates and persists a new patient. When a document number is
// supplied and an oracle is configured, the document is verified first and
// the returned demographics fill any fields the caller left blank. Oracle
// unavailability propagates to the caller, which decides whether to fail
// the action or the request; registration is never silently unverified when
// verification was requested.
func (s *Service) Register(ctx context.Context, tenantID string, p *Patient) error {
	if p.FirstName == "" && p.LastName == "" {
		return fmt.Errorf("patient name is required")
	}

	if p.DocumentNumber != "" && s.verifier != nil {
		demo, err := s.verifier.Verify(ctx, p.DocumentType, p.DocumentNumber)
		if err != nil {
			return fmt.Errorf("verify identity document: %w", err)
		}
		p.IdentityVerified = true
		if p.DateOfBirth == "" {
			p.DateOfBirth = demo.DateOfBirth
		}
		if p.Gender == "" {
			p.Gender = demo.Gender
		}
		if p.Address == "" {
			p.Address = demo.Address
		}
	}

	p.TenantID = tenantID
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, tenantID, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *Service) UpdatePatient(ctx context.Context, tenantID string, p *Patient) error {
	existing, err := s.repo.GetByID(ctx, tenantID, p.ID)
	if err != nil {
		return err
	}
	p.TenantID = tenantID
	p.CreatedAt = existing.CreatedAt
	p.IdentityVerified = existing.IdentityVerified
	p.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, tenantID string) ([]*Patient, error) {
	return s.repo.List(ctx, tenantID)
}
