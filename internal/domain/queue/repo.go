package queue

import (
	"context"

	"github.com/clinicore/clinicore/internal/platform/store"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, tenantID, id string) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, tenantID, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Entry, error)
}

type storeRepo struct {
	store store.Store
}

// NewRepo creates a Repository over the record store.
func NewRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) Create(ctx context.Context, e *Entry) error {
	rec, err := store.NewRecord(e.TenantID, store.KindQueueEntry, e.ID, e)
	if err != nil {
		return err
	}
	return r.store.PutIfAbsent(ctx, rec)
}

func (r *storeRepo) GetByID(ctx context.Context, tenantID, id string) (*Entry, error) {
	rec, err := r.store.Get(ctx, tenantID, store.KindQueueEntry, id)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := rec.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *storeRepo) Update(ctx context.Context, e *Entry) error {
	rec, err := store.NewRecord(e.TenantID, store.KindQueueEntry, e.ID, e)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, rec)
}

func (r *storeRepo) Delete(ctx context.Context, tenantID, id string) error {
	return r.store.Delete(ctx, tenantID, store.KindQueueEntry, id)
}

func (r *storeRepo) ListByTenant(ctx context.Context, tenantID string) ([]*Entry, error) {
	recs, err := r.store.Query(ctx, tenantID, store.KindQueueEntry)
	if err != nil {
		return nil, err
	}
	result := make([]*Entry, 0, len(recs))
	for _, rec := range recs {
		var e Entry
		if err := rec.Decode(&e); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, nil
}
