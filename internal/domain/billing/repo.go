package billing

import (
	"context"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Repository interface {
	CreateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, tenantID, id string) (*Bill, error)
	UpdateBill(ctx context.Context, b *Bill) error
	ListBillsByPatient(ctx context.Context, tenantID, patientID string) ([]*Bill, error)

	// CreatePayment inserts the payment keyed by its natural key; a
	// duplicate receipt number within the tenant yields store.ErrConflict.
	CreatePayment(ctx context.Context, p *Payment) error
	ListPaymentsByBill(ctx context.Context, tenantID, billID string) ([]*Payment, error)
}

type storeRepo struct {
	store store.Store
}

// NewRepo creates a Repository over the record store.
func NewRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) CreateBill(ctx context.Context, b *Bill) error {
	rec, err := store.NewRecord(b.TenantID, store.KindBill, b.ID, b)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) GetBill(ctx context.Context, tenantID, id string) (*Bill, error) {
	rec, err := r.store.Get(ctx, tenantID, store.KindBill, id)
	if err != nil {
		return nil, err
	}
	var b Bill
	if err := rec.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *storeRepo) UpdateBill(ctx context.Context, b *Bill) error {
	rec, err := store.NewRecord(b.TenantID, store.KindBill, b.ID, b)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, rec)
}

func (r *storeRepo) ListBillsByPatient(ctx context.Context, tenantID, patientID string) ([]*Bill, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindBill)
	if err != nil {
		return nil, err
	}
	var result []*Bill
	for _, rec := range recs {
		var b Bill
		if err := rec.Decode(&b); err != nil {
			return nil, err
		}
		if b.PatientID == patientID {
			result = append(result, &b)
		}
	}
	return result, nil
}

func (r *storeRepo) CreatePayment(ctx context.Context, p *Payment) error {
	rec, err := store.NewRecord(p.TenantID, store.KindPayment, paymentKey(p), p)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) ListPaymentsByBill(ctx context.Context, tenantID, billID string) ([]*Payment, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindPayment)
	if err != nil {
		return nil, err
	}
	var result []*Payment
	for _, rec := range recs {
		var p Payment
		if err := rec.Decode(&p); err != nil {
			return nil, err
		}
		if p.BillID == billID {
			result = append(result, &p)
		}
	}
	return result, nil
}

// paymentKey keys a payment by its receipt number when present, making the
// receipt a tenant-wide natural key, and by the payment id otherwise.
func paymentKey(p *Payment) string {
	if p.ReceiptNumber != "" {
		return "receipt:" + p.ReceiptNumber
	}
	return p.ID
}
