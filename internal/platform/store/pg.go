package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store. All records live in a single
// `records` table keyed by (tenant_id, kind, id) with a jsonb payload, so
// tenant scoping is enforced by the primary key rather than a post-fetch
// filter.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore on top of an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordCols = `tenant_id, kind, id, data, created_at, updated_at`

func (s *PGStore) Get(ctx context.Context, tenantID string, kind Kind, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordCols+`
		FROM records WHERE tenant_id = $1 AND kind = $2 AND id = $3`,
		tenantID, kind, id)
	return scanRecord(row)
}

func (s *PGStore) Put(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO records (tenant_id, kind, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, kind, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		rec.TenantID, rec.Kind, rec.ID, rec.Data)
	return err
}

func (s *PGStore) PutIfAbsent(ctx context.Context, rec *Record) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO records (tenant_id, kind, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, kind, id) DO NOTHING`,
		rec.TenantID, rec.Kind, rec.ID, rec.Data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, tenantID string, kind Kind, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM records WHERE tenant_id = $1 AND kind = $2 AND id = $3`,
		tenantID, kind, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Query(ctx context.Context, tenantID string, kind Kind) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recordCols+`
		FROM records WHERE tenant_id = $1 AND kind = $2
		ORDER BY created_at, id`,
		tenantID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.TenantID, &rec.Kind, &rec.ID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
