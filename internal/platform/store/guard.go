package store

import "context"

// Guard is the single chokepoint for entity resolution. Every read that
// precedes a mutation goes through Resolve, which scopes the lookup to the
// caller's tenant. A valid id owned by another tenant yields the same
// ErrNotFound as a nonexistent one, so callers can never probe for entity
// existence across tenants.
type Guard struct {
	store Store
}

// NewGuard creates a Guard over the given store.
func NewGuard(s Store) *Guard {
	return &Guard{store: s}
}

// Resolve returns the record for (tenantID, kind, id), or ErrNotFound.
func (g *Guard) Resolve(ctx context.Context, tenantID string, kind Kind, id string) (*Record, error) {
	if tenantID == "" || id == "" {
		return nil, ErrNotFound
	}
	return g.store.Get(ctx, tenantID, kind, id)
}

// ResolveInto resolves the record and unmarshals its payload into v.
func (g *Guard) ResolveInto(ctx context.Context, tenantID string, kind Kind, id string, v interface{}) error {
	rec, err := g.Resolve(ctx, tenantID, kind, id)
	if err != nil {
		return err
	}
	return rec.Decode(v)
}
