package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/config"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/messaging"
)

const starterScenario = `
start: 2025-03-03T08:00:00Z
leaderboards:
  - id: global
    name: Global
    type: global
challenges:
  - id: starter
    title: Starter
    start_date: 2025-03-03T00:00:00Z
    end_date: 2025-03-10T00:00:00Z
    reward_points: 20
    requirements:
      - type: courses_completed
        target: 1
joins:
  - {user_id: u1, leaderboard: global}
  - {user_id: u2, leaderboard: global}
  - {user_id: u1, challenge: starter}
events:
  - type: course.completed
    user_id: u1
    timestamp: 2025-03-03T09:00:00Z
    payload: {course_id: go-101, experience: 120, score: 80, study_minutes: 45}
  - type: user.daily_login
    user_id: u2
    timestamp: 2025-03-03T10:00:00Z
`

func testApp(t *testing.T, clock shared.Clock) *app {
	t.Helper()
	c := config.FromEnv()
	c.Store.Driver = config.StoreMemory
	c.Events = config.EventsConfig{Bus: config.BusLocal}
	c.App.Location = time.UTC

	a, err := openApp(context.Background(), c, zap.NewNop(), clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestReplay(t *testing.T) {
	sc, err := loadScenario(strings.NewReader(starterScenario))
	require.NoError(t, err)
	require.Len(t, sc.Events, 2)

	clock := shared.NewManualClock(sc.Start)
	a := testApp(t, clock)
	noDelay := time.Duration(0)

	report, err := replay(context.Background(), a, sc, replayOptions{
		Users:        []string{"u1"},
		Leaderboards: []string{"global"},
		Clock:        clock,
		RetryDelay:   &noDelay,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Events)
	assert.Zero(t, report.Failed)
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), clock.Now())

	assert.Equal(t, 2, report.Analytics.TotalUsers)
	assert.Equal(t, 1, report.Analytics.Challenges.Completions)
	assert.Equal(t, 1, report.Analytics.Rewards.Granted)
	assert.Equal(t, 20, report.Analytics.Rewards.PointsPending)

	require.Len(t, report.Users, 1)
	assert.Equal(t, 62, report.Users[0].Progress.TotalPoints)
	require.Len(t, report.Users[0].PendingRewards, 1)

	require.Len(t, report.Leaderboards, 1)
	top := report.Leaderboards[0].Entries[0]
	assert.Equal(t, "u1", top.UserID)
	assert.Equal(t, 62, top.Points)

	assert.EqualValues(t, 2, report.Bus.TotalPublished)
	assert.Zero(t, report.Bus.HandlerFailures)
}

func TestReplay_SetupIsRepeatable(t *testing.T) {
	sc, err := loadScenario(strings.NewReader(starterScenario))
	require.NoError(t, err)
	clock := shared.NewManualClock(sc.Start)
	a := testApp(t, clock)

	require.NoError(t, setupScenario(context.Background(), a, sc))
	require.NoError(t, setupScenario(context.Background(), a, sc))

	board, err := a.engine.Leaderboards.Get(context.Background(), "global")
	require.NoError(t, err)
	assert.Len(t, board.Participants, 2)
}

func TestReplay_UndecodableEventStops(t *testing.T) {
	sc := &scenario{
		Start:  time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
		Events: []messaging.Envelope{{Type: "course.completed", Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}},
	}
	a := testApp(t, shared.NewManualClock(sc.Start))

	_, err := replay(context.Background(), a, sc, replayOptions{KeepGoing: true})
	assert.ErrorContains(t, err, "missing user_id")
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "surprise: true\n", "parse scenario"},
		{"join without target", "joins:\n  - {user_id: u1}\n", "join 0"},
		{"join with both targets", "joins:\n  - {user_id: u1, leaderboard: a, challenge: b}\n", "join 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadScenario(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	sc, err := loadScenario(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, sc.Events)
}
