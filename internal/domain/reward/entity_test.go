package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

func TestClaim_OneWay(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	r, err := New("r1", "u1", Grant{Title: "Бонус", Points: 25, Source: SourceManual}, now)
	require.NoError(t, err)
	assert.False(t, r.IsClaimed)
	assert.Nil(t, r.ClaimedAt)

	require.NoError(t, r.Claim("u1", now.Add(time.Hour)))
	assert.True(t, r.IsClaimed)
	require.NotNil(t, r.ClaimedAt)
	assert.Equal(t, now.Add(time.Hour), *r.ClaimedAt)

	err = r.Claim("u1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, shared.ErrAlreadyClaimed)
	assert.Equal(t, now.Add(time.Hour), *r.ClaimedAt)
}

func TestClaim_WrongOwner(t *testing.T) {
	r, err := New("r1", "u1", Grant{Title: "Бонус", Source: SourceManual}, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, r.Claim("u2", time.Now()), shared.ErrNotFound)
	assert.False(t, r.IsClaimed)
}

func TestNew_NegativePoints(t *testing.T) {
	_, err := New("r1", "u1", Grant{Title: "x", Points: -1, Source: SourceManual}, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}
