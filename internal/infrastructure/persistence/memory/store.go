// Package memory provides an in-process shared.Store backed by maps.
// It is the default backend for tests, replays and single-process runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// Store is a map-backed shared.Store. Values are copied on the way in and
// out, so callers never share memory with the store.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// Compile-time check.
var _ shared.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

// Get implements shared.Store.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.Unavailable("memory", "Get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[collection][key]
	if !ok {
		return nil, fmt.Errorf("memory: %s/%s: %w", collection, key, shared.ErrNotFound)
	}
	return clone(v), nil
}

// List implements shared.Store.
func (s *Store) List(ctx context.Context, collection, prefix string) ([]shared.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.Unavailable("memory", "List", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]shared.Record, 0, len(s.data[collection]))
	for k, v := range s.data[collection] {
		if strings.HasPrefix(k, prefix) {
			records = append(records, shared.Record{Key: k, Value: clone(v)})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// Put implements shared.Store.
func (s *Store) Put(ctx context.Context, collection, key string, value []byte) error {
	return s.Commit(ctx, shared.Write{Collection: collection, Key: key, Value: value})
}

// Commit implements shared.Store. All writes become visible under one lock.
func (s *Store) Commit(ctx context.Context, writes ...shared.Write) error {
	if err := ctx.Err(); err != nil {
		return shared.Unavailable("memory", "Commit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		col, ok := s.data[w.Collection]
		if !ok {
			col = make(map[string][]byte)
			s.data[w.Collection] = col
		}
		col[w.Key] = clone(w.Value)
	}
	return nil
}

// Len returns the number of records in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
