package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind identifies an entity collection within the record store.
type Kind string

const (
	KindTenant       Kind = "tenant"
	KindPatient      Kind = "patient"
	KindVitals       Kind = "vitals"
	KindConsultation Kind = "consultation"
	KindBill         Kind = "bill"
	KindPayment      Kind = "payment"
	KindQueueEntry   Kind = "queue_entry"
	KindIdempotency  Kind = "idempotency"
)

var (
	// ErrNotFound is returned when no record exists for the given
	// (tenant, kind, id). Lookups never reveal whether the id exists
	// under a different tenant.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by PutIfAbsent when a record already exists.
	ErrConflict = errors.New("record already exists")
)

// Record is a single tenant-owned entity, serialized as JSON.
type Record struct {
	TenantID  string    `json:"tenant_id"`
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence collaborator the engine writes through. Every
// operation takes the owning tenant as a first-class key component; there is
// no way to address a record without naming its tenant.
type Store interface {
	// Get returns the record for (tenantID, kind, id), or ErrNotFound.
	Get(ctx context.Context, tenantID string, kind Kind, id string) (*Record, error)
	// Put inserts or replaces the record.
	Put(ctx context.Context, rec *Record) error
	// PutIfAbsent inserts the record only if no record exists for its key.
	// Returns ErrConflict when one does. The check and insert are atomic.
	PutIfAbsent(ctx context.Context, rec *Record) error
	// Delete removes the record for (tenantID, kind, id), or ErrNotFound.
	Delete(ctx context.Context, tenantID string, kind Kind, id string) error
	// Query returns all records of the given kind owned by the tenant.
	Query(ctx context.Context, tenantID string, kind Kind) ([]*Record, error)
}

// NewRecord builds a Record with the value marshaled as its payload.
func NewRecord(tenantID string, kind Kind, id string, v interface{}) (*Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Record{TenantID: tenantID, Kind: kind, ID: id, Data: data}, nil
}

// Decode unmarshals the record payload into v.
func (r *Record) Decode(v interface{}) error {
	return json.Unmarshal(r.Data, v)
}
