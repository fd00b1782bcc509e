package consultation

import (
	"context"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, tenantID, id string) (*Consultation, error)
	ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Consultation, error)
}

type storeRepo struct {
	store store.Store
}

// NewRepo creates a Repository over the record store.
func NewRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) Create(ctx context.Context, c *Consultation) error {
	rec, err := store.NewRecord(c.TenantID, store.KindConsultation, c.ID, c)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) GetByID(ctx context.Context, tenantID, id string) (*Consultation, error) {
	rec, err := r.store.Get(ctx, tenantID, store.KindConsultation, id)
	if err != nil {
		return nil, err
	}
	var c Consultation
	if err := rec.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *storeRepo) ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Consultation, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindConsultation)
	if err != nil {
		return nil, err
	}
	var result []*Consultation
	for _, rec := range recs {
		var c Consultation
		if err := rec.Decode(&c); err != nil {
			return nil, err
		}
		if c.PatientID == patientID {
			result = append(result, &c)
		}
	}
	return result, nil
}
