package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Collection names. Every engine entity lives in exactly one collection.
const (
	CollectionProgress     = "progress"
	CollectionStreaks      = "streaks"
	CollectionAchievements = "achievements"
	CollectionLeaderboards = "leaderboards"
	CollectionChallenges   = "challenges"
	CollectionRewards      = "rewards"
)

// Collections lists every collection the engine writes to.
func Collections() []string {
	return []string{
		CollectionProgress,
		CollectionStreaks,
		CollectionAchievements,
		CollectionLeaderboards,
		CollectionChallenges,
		CollectionRewards,
	}
}

// Record is a stored key/value pair.
type Record struct {
	Key   string
	Value []byte
}

// Write is one pending mutation inside a Commit.
type Write struct {
	Collection string
	Key        string
	Value      []byte
}

// Store is the persistent key-value collaborator behind the engine.
// Implementations must honor read-your-writes per key.
//
// Get returns an error matching ErrNotFound for a missing key. Backend failures
// must match ErrStoreUnavailable.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// List returns every record whose key starts with prefix, ordered by key.
	// An empty prefix lists the whole collection.
	List(ctx context.Context, collection, prefix string) ([]Record, error)

	// Put stores a single value.
	Put(ctx context.Context, collection, key string, value []byte) error

	// Commit applies all writes atomically: either every write is visible
	// afterwards or none is.
	Commit(ctx context.Context, writes ...Write) error
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPED COLLECTION
// ══════════════════════════════════════════════════════════════════════════════

// Collection is a typed JSON view over one store collection.
type Collection[T any] struct {
	store Store
	name  string
}

// NewCollection binds a typed view to a store collection.
func NewCollection[T any](store Store, name string) Collection[T] {
	return Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c Collection[T]) Name() string {
	return c.name
}

// Get decodes the value stored under key.
func (c Collection[T]) Get(ctx context.Context, key string) (*T, error) {
	data, err := c.store.Get(ctx, c.name, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%s: decode %q: %w", c.name, key, err)
	}
	return &v, nil
}

// Find is Get that reports a missing key as (nil, false, nil).
func (c Collection[T]) Find(ctx context.Context, key string) (*T, bool, error) {
	v, err := c.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// List decodes every value whose key starts with prefix.
func (c Collection[T]) List(ctx context.Context, prefix string) ([]*T, error) {
	records, err := c.store.List(ctx, c.name, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			return nil, fmt.Errorf("%s: decode %q: %w", c.name, rec.Key, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Put encodes and stores v under key.
func (c Collection[T]) Put(ctx context.Context, key string, v *T) error {
	w, err := c.Write(key, v)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, w.Collection, w.Key, w.Value)
}

// Write encodes v into a pending Write for use with Store.Commit.
func (c Collection[T]) Write(key string, v *T) (Write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Write{}, fmt.Errorf("%s: encode %q: %w", c.name, key, err)
	}
	return Write{Collection: c.name, Key: key, Value: data}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// KeySeparator joins the components of a composite key.
const KeySeparator = ":"

var keyEscaper = strings.NewReplacer("%", "%25", KeySeparator, "%3A")

// EscapeKeyPart escapes a single key component so it never contains
// KeySeparator. Distinct components always escape to distinct strings.
func EscapeKeyPart(part string) string {
	return keyEscaper.Replace(part)
}

// JoinKey builds a composite key from escaped components.
func JoinKey(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = EscapeKeyPart(p)
	}
	return strings.Join(escaped, KeySeparator)
}

// KeyPrefix returns the prefix shared by every JoinKey that starts with owner.
// It never matches keys of another owner, even one that begins with owner.
func KeyPrefix(owner string) string {
	return EscapeKeyPart(owner) + KeySeparator
}
