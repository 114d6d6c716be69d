package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

const (
	getRecordSQL = `SELECT value FROM engine_records WHERE collection = $1 AND key = $2`

	listRecordsSQL = `
		SELECT key, value FROM engine_records
		WHERE collection = $1 AND starts_with(key, $2)
		ORDER BY key COLLATE "C"`

	upsertRecordSQL = `
		INSERT INTO engine_records (collection, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// Store is a shared.Store over the engine_records table.
type Store struct {
	conn *Connection
}

// Compile-time check.
var _ shared.Store = (*Store)(nil)

// NewStore creates a store on conn. The schema must already be migrated.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Get implements shared.Store.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	q, err := s.conn.querier()
	if err != nil {
		return nil, shared.Unavailable("postgres", "Get", err)
	}

	var value []byte
	err = q.QueryRow(ctx, getRecordSQL, collection, key).Scan(&value)
	if IsNoRows(err) {
		return nil, fmt.Errorf("postgres: %s/%s: %w", collection, key, shared.ErrNotFound)
	}
	if err != nil {
		return nil, shared.Unavailable("postgres", "Get", err)
	}
	return value, nil
}

// List implements shared.Store.
func (s *Store) List(ctx context.Context, collection, prefix string) ([]shared.Record, error) {
	q, err := s.conn.querier()
	if err != nil {
		return nil, shared.Unavailable("postgres", "List", err)
	}

	rows, err := q.Query(ctx, listRecordsSQL, collection, prefix)
	if err != nil {
		return nil, shared.Unavailable("postgres", "List", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.Record, error) {
		var rec shared.Record
		err := row.Scan(&rec.Key, &rec.Value)
		return rec, err
	})
	if err != nil {
		return nil, shared.Unavailable("postgres", "List", err)
	}
	return records, nil
}

// Put implements shared.Store.
func (s *Store) Put(ctx context.Context, collection, key string, value []byte) error {
	q, err := s.conn.querier()
	if err != nil {
		return shared.Unavailable("postgres", "Put", err)
	}
	if _, err := q.Exec(ctx, upsertRecordSQL, collection, key, value); err != nil {
		return shared.Unavailable("postgres", "Put", err)
	}
	return nil
}

// Commit implements shared.Store. All writes are sent as one batch inside a
// single transaction.
func (s *Store) Commit(ctx context.Context, writes ...shared.Write) error {
	if len(writes) == 0 {
		return nil
	}

	err := s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, w := range writes {
			batch.Queue(upsertRecordSQL, w.Collection, w.Key, w.Value)
		}
		results := tx.SendBatch(ctx, batch)
		for range writes {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return err
			}
		}
		return results.Close()
	})
	if err != nil {
		return shared.Unavailable("postgres", "Commit", err)
	}
	return nil
}
