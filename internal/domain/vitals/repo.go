package vitals

import (
	"context"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Repository interface {
	Create(ctx context.Context, r *Reading) error
	GetByID(ctx context.Context, tenantID, id string) (*Reading, error)
	ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Reading, error)
}

type storeRepo struct {
	store store.Store
}

// NewRepo creates a Repository over the record store.
func NewRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) Create(ctx context.Context, reading *Reading) error {
	rec, err := store.NewRecord(reading.TenantID, store.KindVitals, reading.ID, reading)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) GetByID(ctx context.Context, tenantID, id string) (*Reading, error) {
	rec, err := r.store.Get(ctx, tenantID, store.KindVitals, id)
	if err != nil {
		return nil, err
	}
	var reading Reading
	if err := rec.Decode(&reading); err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *storeRepo) ListByPatient(ctx context.Context, tenantID, patientID string) ([]*Reading, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindVitals)
	if err != nil {
		return nil, err
	}
	var result []*Reading
	for _, rec := range recs {
		var reading Reading
		if err := rec.Decode(&reading); err != nil {
			return nil, err
		}
		if reading.PatientID == patientID {
			result = append(result, &reading)
		}
	}
	return result, nil
}
