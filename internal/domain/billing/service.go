package billing

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

// CreateBill validates line items, derives the total, and persists the bill
// for an existing patient.
func (s *Service) CreateBill(ctx context.Context, tenantID string, b *Bill) error {
	if b.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if len(b.Items) == 0 {
		return fmt.Errorf("at least one line item is required")
	}
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, b.PatientID); err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	if b.ConsultationID != "" {
		if _, err := s.guard.Resolve(ctx, tenantID, store.KindConsultation, b.ConsultationID); err != nil {
			return fmt.Errorf("resolve consultation: %w", err)
		}
	}

	var total int64
	for i, item := range b.Items {
		if item.Description == "" {
			return fmt.Errorf("line item %d: description is required", i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("line item %d: quantity must be positive", i+1)
		}
		if item.UnitPriceCents < 0 {
			return fmt.Errorf("line item %d: unit price must not be negative", i+1)
		}
		total += int64(item.Quantity) * item.UnitPriceCents
	}

	b.TenantID = tenantID
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.TotalCents = total
	b.PaidCents = 0
	b.Status = StatusIssued
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	return s.repo.CreateBill(ctx, b)
}

func (s *Service) GetBill(ctx context.Context, tenantID, id string) (*Bill, error) {
	return s.repo.GetBill(ctx, tenantID, id)
}

func (s *Service) ListBillsByPatient(ctx context.Context, tenantID, patientID string) ([]*Bill, error) {
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, patientID); err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	return s.repo.ListBillsByPatient(ctx, tenantID, patientID)
}

// RecordPayment applies a payment to a bill. A duplicate receipt number
// surfaces store.ErrConflict from the conditional insert; this is the
// natural-key collision path, distinct from idempotent replay of the same
// request.
func (s *Service) RecordPayment(ctx context.Context, tenantID string, p *Payment) (*Bill, error) {
	if p.BillID == "" {
		return nil, fmt.Errorf("bill_id is required")
	}
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	bill, err := s.repo.GetBill(ctx, tenantID, p.BillID)
	if err != nil {
		return nil, fmt.Errorf("resolve bill: %w", err)
	}
	if p.AmountCents > bill.Outstanding() {
		return nil, fmt.Errorf("amount %d exceeds outstanding balance %d", p.AmountCents, bill.Outstanding())
	}

	p.TenantID = tenantID
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	bill.PaidCents += p.AmountCents
	if bill.PaidCents >= bill.TotalCents {
		bill.Status = StatusPaid
	} else {
		bill.Status = StatusPartiallyPaid
	}
	bill.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("update bill balance: %w", err)
	}
	return bill, nil
}
