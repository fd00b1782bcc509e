package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicore/clinicore/internal/platform/store"
)

// StoreRecords keeps idempotency records in the shared record store under
// the idempotency kind, reusing its atomic conditional insert.
type StoreRecords struct {
	store store.Store
}

// NewStoreRecords creates a RecordStore over the given record store.
func NewStoreRecords(s store.Store) *StoreRecords {
	return &StoreRecords{store: s}
}

func (s *StoreRecords) Get(ctx context.Context, tenantID, requestKey string) (*Record, error) {
	rec, err := s.store.Get(ctx, tenantID, store.KindIdempotency, requestKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	var out Record
	if err := rec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &out, nil
}

func (s *StoreRecords) PutIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error) {
	srec, err := store.NewRecord(rec.TenantID, store.KindIdempotency, rec.RequestKey, rec)
	if err != nil {
		return nil, false, err
	}
	err = s.store.PutIfAbsent(ctx, srec)
	if errors.Is(err, store.ErrConflict) {
		winner, gerr := s.Get(ctx, rec.TenantID, rec.RequestKey)
		if errors.Is(gerr, ErrNoRecord) {
			// The conflicting record was deleted between the insert and
			// the read; ours is current.
			if perr := s.store.Put(ctx, srec); perr != nil {
				return nil, false, perr
			}
			return rec, true, nil
		}
		if gerr != nil {
			return nil, false, gerr
		}
		// A row left over from an earlier retention window still occupies
		// the key. It must not win: the caller already re-ran the
		// operation, so the fresh outcome replaces it.
		if !winner.ExpiresAt.After(rec.CreatedAt) {
			if perr := s.store.Put(ctx, srec); perr != nil {
				return nil, false, perr
			}
			return rec, true, nil
		}
		// Lost the race: the winner's record is authoritative.
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
