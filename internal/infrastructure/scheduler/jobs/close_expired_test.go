package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/memory"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/scheduler"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func TestCloseExpiredJob(t *testing.T) {
	clock := shared.NewManualClock(t0)
	engine := gamification.New(memory.New(), clock)
	ctx := context.Background()

	_, err := engine.Leaderboards.Create(ctx, leaderboard.Definition{
		ID: "week", Name: "This week", Type: leaderboard.TypeWeekly, StartDate: t0,
	})
	require.NoError(t, err)
	_, err = engine.Challenges.Create(ctx, challenge.Definition{
		ID: "sprint", Title: "Sprint", StartDate: t0, EndDate: t0.AddDate(0, 0, 3),
		Requirements: []challenge.Requirement{{Type: challenge.RequirementCoursesCompleted, Target: 1}},
	})
	require.NoError(t, err)

	job := NewCloseExpiredJob(engine, nil)
	var _ scheduler.Job = job

	require.NoError(t, job.Run(ctx))
	b, c := job.LastRun()
	assert.Zero(t, b)
	assert.Zero(t, c)

	clock.Advance(4 * 24 * time.Hour)
	require.NoError(t, job.Run(ctx))
	b, c = job.LastRun()
	assert.Zero(t, b)
	assert.Equal(t, 1, c)

	clock.Advance(7 * 24 * time.Hour)
	require.NoError(t, job.Run(ctx))
	b, c = job.LastRun()
	assert.Equal(t, 1, b)
	assert.Zero(t, c)
}

type stubExpirer struct {
	n   int
	err error
}

func (s stubExpirer) CloseExpired(context.Context) (int, error) { return s.n, s.err }

func TestCloseExpiredJob_RunsBothSweepsOnFailure(t *testing.T) {
	errDown := errors.New("down")
	job := newCloseExpiredJob(stubExpirer{err: errDown}, stubExpirer{n: 2}, nil)

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, errDown)
	assert.ErrorContains(t, err, "close leaderboards")
	_, c := job.LastRun()
	assert.Equal(t, 2, c)
}
