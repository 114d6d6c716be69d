package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// scanCount is the HSCAN page size hint.
const scanCount = 256

// Store is a shared.Store over Redis hashes.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Compile-time check.
var _ shared.Store = (*Store)(nil)

// NewStore creates a store. keyPrefix namespaces the collection hashes.
func NewStore(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

// hashKey returns the hash holding collection.
func (s *Store) hashKey(collection string) string {
	return s.prefix + collection
}

// Get implements shared.Store.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	v, err := s.client.HGet(ctx, s.hashKey(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: %s/%s: %w", collection, key, shared.ErrNotFound)
	}
	if err != nil {
		return nil, shared.Unavailable("redis", "Get", err)
	}
	return v, nil
}

// List implements shared.Store. A whole collection is read with HGETALL;
// prefixed listing pages through HSCAN.
func (s *Store) List(ctx context.Context, collection, prefix string) ([]shared.Record, error) {
	hash := s.hashKey(collection)

	var records []shared.Record
	if prefix == "" {
		all, err := s.client.HGetAll(ctx, hash).Result()
		if err != nil {
			return nil, shared.Unavailable("redis", "List", err)
		}
		records = make([]shared.Record, 0, len(all))
		for k, v := range all {
			records = append(records, shared.Record{Key: k, Value: []byte(v)})
		}
	} else {
		iter := s.client.HScan(ctx, hash, 0, MatchPattern(prefix), scanCount).Iterator()
		for iter.Next(ctx) {
			field := iter.Val()
			if !iter.Next(ctx) {
				break
			}
			// MATCH is a glob; recheck the literal prefix.
			if strings.HasPrefix(field, prefix) {
				records = append(records, shared.Record{Key: field, Value: []byte(iter.Val())})
			}
		}
		if err := iter.Err(); err != nil {
			return nil, shared.Unavailable("redis", "List", err)
		}
		records = dedupe(records)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// Put implements shared.Store.
func (s *Store) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.hashKey(collection), key, value).Err(); err != nil {
		return shared.Unavailable("redis", "Put", err)
	}
	return nil
}

// Commit implements shared.Store with a MULTI/EXEC pipeline.
func (s *Store) Commit(ctx context.Context, writes ...shared.Write) error {
	if len(writes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			pipe.HSet(ctx, s.hashKey(w.Collection), w.Key, w.Value)
		}
		return nil
	})
	if err != nil {
		return shared.Unavailable("redis", "Commit", err)
	}
	return nil
}

// MatchPattern turns a literal key prefix into an HSCAN MATCH glob.
func MatchPattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}

// dedupe drops repeated fields; HSCAN may return a field more than once.
func dedupe(records []shared.Record) []shared.Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		if _, ok := seen[r.Key]; ok {
			continue
		}
		seen[r.Key] = struct{}{}
		out = append(out, r)
	}
	return out
}
