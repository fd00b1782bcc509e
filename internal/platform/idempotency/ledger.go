package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the default retention window for completed-request records.
// There is no observed requirement for a specific value; 24 hours gives
// offline clients a full working day to retry a batch and is configurable
// via IDEMPOTENCY_TTL_HOURS.
const DefaultTTL = 24 * time.Hour

// ErrNoRecord is returned by a RecordStore when no record exists for the key.
var ErrNoRecord = errors.New("no idempotency record")

// Record is the durable outcome of a completed request, keyed by
// (tenant, request key). Within its validity window every request with the
// same key returns the identical Response and causes no further mutation.
type Record struct {
	TenantID   string          `json:"tenant_id"`
	RequestKey string          `json:"request_key"`
	Response   json.RawMessage `json:"response"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// RecordStore persists idempotency records. Implementations must make
// PutIfAbsent atomic: under concurrent inserts for the same key exactly one
// caller wins and every caller observes the winner's record.
type RecordStore interface {
	// Get returns the record for (tenantID, requestKey), or ErrNoRecord.
	Get(ctx context.Context, tenantID, requestKey string) (*Record, error)
	// PutIfAbsent stores rec unless a record already exists for its key.
	// It returns the record now durable for the key and whether rec won.
	PutIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error)
}

// Operation produces the response to cache. It must only be invoked once per
// (tenant, request key) within the retention window.
type Operation func(ctx context.Context) (json.RawMessage, error)

// Ledger guarantees at-most-once execution of keyed operations. Concurrent
// calls with the same key collapse onto one in-flight execution; calls after
// completion replay the stored response. An Operation error is treated as a
// transient infrastructure failure and leaves no record, so the next retry
// executes again. Deterministic failures must be encoded into the response
// itself so they replay like successes.
type Ledger struct {
	records RecordStore
	ttl     time.Duration
	group   singleflight.Group
	nowFunc func() time.Time // for testing; defaults to time.Now
}

// NewLedger creates a Ledger with the given record store and retention
// window. If ttl is zero or negative, DefaultTTL is used.
func NewLedger(records RecordStore, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{records: records, ttl: ttl, nowFunc: time.Now}
}

type outcome struct {
	response json.RawMessage
	replayed bool
}

// Execute runs op at most once for (tenantID, requestKey). The returned bool
// reports whether the response was replayed from a prior completion.
func (l *Ledger) Execute(ctx context.Context, tenantID, requestKey string, op Operation) (json.RawMessage, bool, error) {
	if tenantID == "" || requestKey == "" {
		return nil, false, fmt.Errorf("idempotency: tenant and request key are required")
	}

	if rec, err := l.lookup(ctx, tenantID, requestKey); err != nil {
		return nil, false, err
	} else if rec != nil {
		return rec.Response, true, nil
	}

	flightKey := tenantID + "\x00" + requestKey
	v, err, _ := l.group.Do(flightKey, func() (interface{}, error) {
		// A racing caller may have completed between the lookup above and
		// acquiring the flight slot.
		if rec, err := l.lookup(ctx, tenantID, requestKey); err != nil {
			return nil, err
		} else if rec != nil {
			return outcome{response: rec.Response, replayed: true}, nil
		}

		response, err := op(ctx)
		if err != nil {
			return nil, err
		}

		now := l.nowFunc().UTC()
		rec := &Record{
			TenantID:   tenantID,
			RequestKey: requestKey,
			Response:   response,
			CreatedAt:  now,
			ExpiresAt:  now.Add(l.ttl),
		}
		winner, inserted, err := l.records.PutIfAbsent(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("store idempotency record: %w", err)
		}
		return outcome{response: winner.Response, replayed: !inserted}, nil
	})
	if err != nil {
		return nil, false, err
	}

	out := v.(outcome)
	return out.response, out.replayed, nil
}

// lookup returns the unexpired record for the key, nil when absent or stale.
func (l *Ledger) lookup(ctx context.Context, tenantID, requestKey string) (*Record, error) {
	rec, err := l.records.Get(ctx, tenantID, requestKey)
	if errors.Is(err, ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency record: %w", err)
	}
	if l.nowFunc().After(rec.ExpiresAt) {
		return nil, nil
	}
	return rec, nil
}
