package gamification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

func createBoard(t *testing.T, f *fixture, def leaderboard.Definition) *leaderboard.Leaderboard {
	t.Helper()
	l, err := f.engine.Leaderboards.Create(context.Background(), def)
	require.NoError(t, err)
	return l
}

func userOrder(l *leaderboard.Leaderboard) []string {
	out := make([]string, 0, len(l.Participants))
	for _, p := range l.Participants {
		out = append(out, p.UserID)
	}
	return out
}

func TestLeaderboardEngine_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := createBoard(t, f, leaderboard.Definition{Name: "All time", Type: leaderboard.TypeGlobal})
	assert.Equal(t, "id-001", l.ID)
	assert.True(t, l.IsActive)
	assert.Empty(t, l.Participants)
	assert.Nil(t, l.EndDate)

	weekly := createBoard(t, f, leaderboard.Definition{Name: "This week", Type: leaderboard.TypeWeekly})
	require.NotNil(t, weekly.EndDate)
	assert.Equal(t, time.Date(2025, 3, 9, 23, 59, 59, 999999999, time.UTC), *weekly.EndDate)

	monthly := createBoard(t, f, leaderboard.Definition{Name: "March", Type: leaderboard.TypeMonthly})
	require.NotNil(t, monthly.EndDate)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), *monthly.EndDate)

	_, err := f.engine.Leaderboards.Create(ctx, leaderboard.Definition{Name: "Course", Type: leaderboard.TypeCourse})
	assert.ErrorIs(t, err, shared.ErrValidation, "course boards need a course id")

	createBoard(t, f, leaderboard.Definition{ID: "fixed", Name: "Fixed", Type: leaderboard.TypeGlobal})
	_, err = f.engine.Leaderboards.Create(ctx, leaderboard.Definition{ID: "fixed", Name: "Again", Type: leaderboard.TypeGlobal})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLeaderboardEngine_RankingTieBreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createBoard(t, f, leaderboard.Definition{ID: "lb", Name: "Global", Type: leaderboard.TypeGlobal})

	// C joins first (t0), A second (t1), B last (t2)
	for _, id := range []string{"C", "A", "B"} {
		_, err := f.engine.Leaderboards.Join(ctx, l.ID, id)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	for id, pts := range map[string]int{"A": 100, "B": 150, "C": 100} {
		_, err := f.engine.Leaderboards.UpdateScore(ctx, l.ID, id, pts)
		require.NoError(t, err)
	}

	got, err := f.engine.Leaderboards.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, userOrder(got))
	for i, p := range got.Participants {
		assert.Equal(t, leaderboard.Rank(i+1), p.Rank)
	}
}

func TestLeaderboardEngine_JoinSeedsPointsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createBoard(t, f, leaderboard.Definition{ID: "lb", Name: "Global", Type: leaderboard.TypeGlobal})

	_, err := f.engine.Progress.AddExperience(ctx, "u1", 250)
	require.NoError(t, err)

	got, err := f.engine.Leaderboards.Join(ctx, l.ID, "u1")
	require.NoError(t, err)
	p, ok := got.Participant("u1")
	require.True(t, ok)
	assert.Equal(t, 25, p.Points)
	assert.Equal(t, leaderboard.Rank(1), p.Rank)

	f.clock.Advance(time.Hour)
	again, err := f.engine.Leaderboards.Join(ctx, l.ID, "u1")
	require.NoError(t, err)
	assert.Len(t, again.Participants, 1)
	assert.Equal(t, t0, again.Participants[0].JoinedAt)

	// Joining creates progress for new users.
	_, err = f.engine.Leaderboards.Join(ctx, l.ID, "u2")
	require.NoError(t, err)
	_, err = f.engine.Progress.Get(ctx, "u2")
	require.NoError(t, err)
}

func TestLeaderboardEngine_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := t0.Add(time.Hour)
	l := createBoard(t, f, leaderboard.Definition{ID: "lb", Name: "Sprint", Type: leaderboard.TypeWeekly, EndDate: &end})

	_, err := f.engine.Leaderboards.Join(ctx, "missing", "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.Leaderboards.UpdateScore(ctx, "missing", "u1", 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.Leaderboards.Join(ctx, l.ID, "u1")
	require.NoError(t, err)

	_, err = f.engine.Leaderboards.UpdateScore(ctx, l.ID, "u1", -1)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	f.clock.Advance(2 * time.Hour)
	_, err = f.engine.Leaderboards.UpdateScore(ctx, l.ID, "u1", 5)
	assert.ErrorIs(t, err, shared.ErrInactive)
	_, err = f.engine.Leaderboards.Join(ctx, l.ID, "u2")
	assert.ErrorIs(t, err, shared.ErrInactive)
}

func TestLeaderboardEngine_UpdateScoreNonParticipantLeavesBoardUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createBoard(t, f, leaderboard.Definition{ID: "lb", Name: "Global", Type: leaderboard.TypeGlobal})
	_, err := f.engine.Leaderboards.Join(ctx, l.ID, "u1")
	require.NoError(t, err)

	before, err := f.engine.Leaderboards.Get(ctx, l.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.engine.Leaderboards.UpdateScore(ctx, l.ID, "ghost", 500)
	assert.ErrorIs(t, err, shared.ErrNotAParticipant)

	after, err := f.engine.Leaderboards.Get(ctx, l.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("board changed (-before +after):\n%s", diff)
	}
}

func TestLeaderboardEngine_ConcurrentUpdateScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createBoard(t, f, leaderboard.Definition{ID: "lb", Name: "Global", Type: leaderboard.TypeGlobal})

	const n = 30
	users := make([]string, n)
	for i := range users {
		users[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		_, err := f.engine.Leaderboards.Join(ctx, l.ID, users[i])
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(u string, pts int) {
			defer wg.Done()
			_, err := f.engine.Leaderboards.UpdateScore(ctx, l.ID, u, pts)
			assert.NoError(t, err)
		}(u, (i+1)*10)
	}
	wg.Wait()

	got, err := f.engine.Leaderboards.Get(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, n)
	for i, p := range got.Participants {
		assert.Equal(t, (n-i)*10, p.Points, "every update must be applied")
		assert.Equal(t, leaderboard.Rank(i+1), p.Rank)
	}
}

func TestLeaderboardEngine_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, typ := range []leaderboard.Type{leaderboard.TypeGlobal, leaderboard.TypeWeekly, leaderboard.TypeWeekly} {
		createBoard(t, f, leaderboard.Definition{
			ID:        string(rune('a' + i)),
			Name:      "board",
			Type:      typ,
			StartDate: t0.Add(time.Duration(i) * time.Hour),
		})
	}

	all, err := f.engine.Leaderboards.List(ctx, leaderboard.Filter{})
	require.NoError(t, err)
	ids := []string{}
	for _, l := range all {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	weekly, err := f.engine.Leaderboards.List(ctx, leaderboard.Filter{Type: leaderboard.TypeWeekly, Limit: 1})
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, "c", weekly[0].ID)
}

func TestLeaderboardEngine_SyncStandingsAndCloseExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := t0.Add(24 * time.Hour)
	global := createBoard(t, f, leaderboard.Definition{ID: "global", Name: "Global", Type: leaderboard.TypeGlobal})
	sprint := createBoard(t, f, leaderboard.Definition{ID: "sprint", Name: "Sprint", Type: leaderboard.TypeWeekly, EndDate: &end})
	createBoard(t, f, leaderboard.Definition{ID: "other", Name: "Other", Type: leaderboard.TypeGlobal})

	for _, id := range []string{global.ID, sprint.ID} {
		_, err := f.engine.Leaderboards.Join(ctx, id, "u1")
		require.NoError(t, err)
	}

	updated, err := f.engine.Leaderboards.SyncStandings(ctx, "u1", 70)
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	updated, err = f.engine.Leaderboards.SyncStandings(ctx, "u1", 70)
	require.NoError(t, err)
	assert.Empty(t, updated)

	f.clock.Advance(48 * time.Hour)
	closed, err := f.engine.Leaderboards.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	s, err := f.engine.Leaderboards.Get(ctx, sprint.ID)
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	updated, err = f.engine.Leaderboards.SyncStandings(ctx, "u1", 90)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "global", updated[0].ID)
}
