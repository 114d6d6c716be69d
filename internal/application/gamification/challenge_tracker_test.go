package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

func weekChallenge(points int) challenge.Definition {
	return challenge.Definition{
		ID:        "spring",
		Title:     "Spring sprint",
		StartDate: t0,
		EndDate:   t0.AddDate(0, 0, 7),
		Requirements: []challenge.Requirement{
			{Type: challenge.RequirementCoursesCompleted, Target: 2},
			{Type: challenge.RequirementStudyMinutes, Target: 60},
		},
		RewardPoints: points,
	}
}

func TestChallengeTracker_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*challenge.Definition)
	}{
		{"no title", func(d *challenge.Definition) { d.Title = "" }},
		{"end before start", func(d *challenge.Definition) { d.EndDate = t0.Add(-time.Hour) }},
		{"no requirements", func(d *challenge.Definition) { d.Requirements = nil }},
		{"zero target", func(d *challenge.Definition) { d.Requirements[0].Target = 0 }},
		{"duplicate type", func(d *challenge.Definition) {
			d.Requirements[1].Type = challenge.RequirementCoursesCompleted
		}},
		{"negative reward", func(d *challenge.Definition) { d.RewardPoints = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := weekChallenge(0)
			tt.mutate(&def)
			_, err := f.engine.Challenges.Create(ctx, def)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	c, err := f.engine.Challenges.Create(ctx, weekChallenge(0))
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Empty(t, c.Participants)

	_, err = f.engine.Challenges.Create(ctx, weekChallenge(0))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestChallengeTracker_ProgressIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engine.Challenges.Create(ctx, weekChallenge(0))
	require.NoError(t, err)

	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u2")
	require.NoError(t, err)

	got, err := f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 45)
	require.NoError(t, err)
	got, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 45)
	require.NoError(t, err)

	p, ok := got.Participant("u1")
	require.True(t, ok)
	assert.Equal(t, 60, p.Requirements[1].Current)
	assert.False(t, got.IsCompleteFor("u1"))

	other, ok := got.Participant("u2")
	require.True(t, ok)
	assert.Equal(t, 0, other.Requirements[1].Current, "progress is per participant")

	stored, err := f.engine.Challenges.Get(ctx, c.ID)
	require.NoError(t, err)
	sp, _ := stored.Participant("u1")
	assert.Equal(t, 60, sp.Requirements[1].Current)
}

func TestChallengeTracker_UnknownRequirementTypeWarns(t *testing.T) {
	obsCore, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(obsCore)))
	ctx := context.Background()

	c, err := f.engine.Challenges.Create(ctx, weekChallenge(0))
	require.NoError(t, err)
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)
	before, err := f.engine.Challenges.Get(ctx, c.ID)
	require.NoError(t, err)

	got, err := f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", "forum_posts", 3)
	require.NoError(t, err)
	assert.Equal(t, before, got)

	entries := logs.FilterMessage("unknown challenge requirement type").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "spring", fields["challenge_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "forum_posts", fields["requirement_type"])
}

func TestChallengeTracker_CompletionGrantsRewardOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engine.Challenges.Create(ctx, weekChallenge(200))
	require.NoError(t, err)
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)

	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementCoursesCompleted, 2)
	require.NoError(t, err)
	rewards, err := f.engine.Rewards.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rewards)

	got, err := f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 90)
	require.NoError(t, err)
	assert.True(t, got.IsCompleteFor("u1"))
	assert.Equal(t, 1, got.CompletedCount())

	// Further progress on a finished challenge grants nothing new.
	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 10)
	require.NoError(t, err)

	rewards, err = f.engine.Rewards.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	r := rewards[0]
	assert.Equal(t, CompletionRewardID(c.ID), r.ID)
	assert.Equal(t, 200, r.Points)
	assert.Equal(t, reward.SourceChallenge, r.Source)
	assert.Equal(t, c.ID, r.SourceID)
	assert.False(t, r.IsClaimed)
}

func TestChallengeTracker_FailedCommitKeepsChallengeAndReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engine.Challenges.Create(ctx, weekChallenge(50))
	require.NoError(t, err)
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)
	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementCoursesCompleted, 2)
	require.NoError(t, err)

	f.store.broken.Store(true)
	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 60)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	f.store.broken.Store(false)

	stored, err := f.engine.Challenges.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleteFor("u1"))
	rewards, err := f.engine.Rewards.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestChallengeTracker_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engine.Challenges.Create(ctx, weekChallenge(0))
	require.NoError(t, err)

	_, err = f.engine.Challenges.Join(ctx, "missing", "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 5)
	assert.ErrorIs(t, err, shared.ErrNotAParticipant)

	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)

	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.engine.Challenges.RecordProgress(ctx, c.ID, "u1", challenge.RequirementStudyMinutes, 5)
	assert.ErrorIs(t, err, shared.ErrInactive)
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u2")
	assert.ErrorIs(t, err, shared.ErrInactive)

	// Existing participants may re-join without error.
	_, err = f.engine.Challenges.Join(ctx, c.ID, "u1")
	require.NoError(t, err)
}

func TestChallengeTracker_CloseExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Challenges.Create(ctx, weekChallenge(0))
	require.NoError(t, err)
	long := weekChallenge(0)
	long.ID = "summer"
	long.EndDate = t0.AddDate(0, 3, 0)
	_, err = f.engine.Challenges.Create(ctx, long)
	require.NoError(t, err)

	closed, err := f.engine.Challenges.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	f.clock.Advance(8 * 24 * time.Hour)
	closed, err = f.engine.Challenges.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	closed, err = f.engine.Challenges.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	list, err := f.engine.Challenges.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsActive, "spring")
	assert.True(t, list[1].IsActive, "summer")
}
