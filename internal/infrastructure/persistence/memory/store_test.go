package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

func TestStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, shared.CollectionProgress, "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	value := []byte(`{"user_id":"u1"}`)
	require.NoError(t, s.Put(ctx, shared.CollectionProgress, "u1", value))

	// Mutating the caller buffer must not leak into the store.
	value[0] = 'X'
	got, err := s.Get(ctx, shared.CollectionProgress, "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"user_id":"u1"}`, string(got))
}

func TestStore_ListByPrefixSorted(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, k := range []string{"u2:daily_login", "u1:social_participation", "u1:daily_login", "u10:daily_login"} {
		require.NoError(t, s.Put(ctx, shared.CollectionStreaks, k, []byte(k)))
	}

	records, err := s.List(ctx, shared.CollectionStreaks, "u1:")
	require.NoError(t, err)
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"u1:daily_login", "u1:social_participation"}, keys)

	all, err := s.List(ctx, shared.CollectionStreaks, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_CommitAcrossCollections(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Commit(ctx,
		shared.Write{Collection: shared.CollectionAchievements, Key: "u1:first_course", Value: []byte("a")},
		shared.Write{Collection: shared.CollectionProgress, Key: "u1", Value: []byte("p")},
	))
	assert.Equal(t, 1, s.Len(shared.CollectionAchievements))
	assert.Equal(t, 1, s.Len(shared.CollectionProgress))
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Put(ctx, shared.CollectionProgress, "u1", []byte("x"))
	assert.True(t, shared.IsRetryable(err))
}
