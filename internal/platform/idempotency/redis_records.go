package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRecords keeps idempotency records in Redis. SETNX gives the atomic
// test-and-set and Redis expiry enforces the retention window, so records
// clean themselves up without a sweeper.
type RedisRecords struct {
	client *redis.Client
}

// NewRedisRecords creates a RecordStore over the given Redis client.
func NewRedisRecords(client *redis.Client) *RedisRecords {
	return &RedisRecords{client: client}
}

func redisKey(tenantID, requestKey string) string {
	return fmt.Sprintf("idem:%s:%s", tenantID, requestKey)
}

func (s *RedisRecords) Get(ctx context.Context, tenantID, requestKey string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(tenantID, requestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *RedisRecords) PutIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, false, err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := s.client.SetNX(ctx, redisKey(rec.TenantID, rec.RequestKey), data, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		winner, err := s.Get(ctx, rec.TenantID, rec.RequestKey)
		if errors.Is(err, ErrNoRecord) {
			// Winner expired between SETNX and GET; treat our copy as current.
			return rec, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	return rec, true, nil
}
