package patient

import (
	"context"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, tenantID, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, tenantID string) ([]*Patient, error)
}

type storeRepo struct {
	store store.Store
}

// NewRepo creates a Repository over the record store.
func NewRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) Create(ctx context.Context, p *Patient) error {
	rec, err := store.NewRecord(p.TenantID, store.KindPatient, p.ID, p)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) GetByID(ctx context.Context, tenantID, id string) (*Patient, error) {
	rec, err := r.store.Get(ctx, tenantID, store.KindPatient, id)
	if err != nil {
		return nil, err
	}
	var p Patient
	if err := rec.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *storeRepo) Update(ctx context.Context, p *Patient) error {
	rec, err := store.NewRecord(p.TenantID, store.KindPatient, p.ID, p)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, rec)
}

func (r *storeRepo) List(ctx context.Context, tenantID string) ([]*Patient, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindPatient)
	if err != nil {
		return nil, err
	}
	result := make([]*Patient, 0, len(recs))
	for _, rec := range recs {
		var p Patient
		if err := rec.Decode(&p); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, nil
}
