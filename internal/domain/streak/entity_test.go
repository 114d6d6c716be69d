package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

func day(d, hour, minute int) time.Time {
	return time.Date(2025, 1, 1+d, hour, minute, 0, 0, time.UTC)
}

func newStreak(t *testing.T) *Streak {
	t.Helper()
	s, err := New("u1", TypeDailyLogin)
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", TypeDailyLogin)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = New("u1", Type("weekly_login"))
	assert.ErrorIs(t, err, ErrInvalidType)

	s := newStreak(t)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.False(t, s.HasActivity())
}

func TestRecordActivity_ConsecutiveDays(t *testing.T) {
	s := newStreak(t)

	outcomes := make([]Outcome, 0, 3)
	for d := 0; d < 3; d++ {
		o, err := s.RecordActivity(day(d, 10, 0), time.UTC)
		require.NoError(t, err)
		outcomes = append(outcomes, o)
	}

	assert.Equal(t, []Outcome{OutcomeStarted, OutcomeContinued, OutcomeContinued}, outcomes)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
	assert.Equal(t, day(0, 10, 0), s.StartDate)
}

func TestRecordActivity_SkippedDayResets(t *testing.T) {
	s := newStreak(t)

	for _, d := range []int{0, 1} {
		_, err := s.RecordActivity(day(d, 10, 0), time.UTC)
		require.NoError(t, err)
	}
	o, err := s.RecordActivity(day(3, 10, 0), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, OutcomeBroken, o)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 2, s.PreviousStreak)
	assert.Equal(t, day(3, 10, 0), s.StartDate)
}

func TestRecordActivity_SameDayIsNoop(t *testing.T) {
	s := newStreak(t)

	_, err := s.RecordActivity(day(0, 0, 1), time.UTC)
	require.NoError(t, err)
	before := *s

	o, err := s.RecordActivity(day(0, 23, 59), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnchanged, o)
	assert.Equal(t, before, *s)
}

func TestRecordActivity_MidnightBoundary(t *testing.T) {
	s := newStreak(t)

	_, err := s.RecordActivity(day(0, 23, 59), time.UTC)
	require.NoError(t, err)

	// Две минуты спустя - уже следующий календарный день
	o, err := s.RecordActivity(day(1, 0, 1), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinued, o)
	assert.Equal(t, 2, s.CurrentStreak)

	// 47 часов спустя, но только через один календарный день
	o, err = s.RecordActivity(day(2, 23, 0), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinued, o)
	assert.Equal(t, 3, s.CurrentStreak)
}

func TestRecordActivity_LocationDefinesDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	s := newStreak(t)

	// 20:00 UTC = 01:00 следующего дня в UTC+5
	_, err := s.RecordActivity(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	o, err := s.RecordActivity(time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)

	assert.Equal(t, OutcomeContinued, o)
	assert.Equal(t, 2, s.CurrentStreak)
}

func TestRecordActivity_ClockRegression(t *testing.T) {
	s := newStreak(t)

	_, err := s.RecordActivity(day(2, 12, 0), time.UTC)
	require.NoError(t, err)
	before := *s

	_, err = s.RecordActivity(day(2, 11, 0), time.UTC)
	assert.ErrorIs(t, err, shared.ErrClockRegression)
	assert.Equal(t, before, *s)
}

func TestDaysUntilBreak(t *testing.T) {
	s := newStreak(t)
	assert.Equal(t, 0, s.DaysUntilBreak(day(0, 9, 0), time.UTC))

	_, err := s.RecordActivity(day(0, 9, 0), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 2, s.DaysUntilBreak(day(0, 22, 0), time.UTC))
	assert.Equal(t, 1, s.DaysUntilBreak(day(1, 22, 0), time.UTC))
	assert.Equal(t, 0, s.DaysUntilBreak(day(2, 0, 0), time.UTC))
	assert.True(t, s.IsBroken(day(2, 0, 0), time.UTC))
	assert.False(t, s.IsBroken(day(1, 23, 0), time.UTC))
}
