package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	s := New(Config{Tick: time.Millisecond})
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.GreaterOrEqual(t, infos[0].RunCount, int64(3))
	assert.Equal(t, "@every 1ms", infos[0].Schedule)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := New(Config{Tick: time.Millisecond})
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.NoError(t, s.Stop())
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := New(Config{})
	errJob := errors.New("job failed")
	job := &countingJob{name: "manual", err: errJob}

	assert.ErrorIs(t, s.Register(nil, Every(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour)), ErrJobAlreadyExists)

	res, err := s.RunNow(context.Background(), "manual")
	assert.ErrorIs(t, err, errJob)
	assert.True(t, res.Manual)
	assert.False(t, res.Success())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.SetEnabled("missing", false), ErrJobNotFound)

	hist := s.History(10)
	require.Len(t, hist, 1)
	assert.Equal(t, int64(1), s.ListJobs()[0].FailCount)
}

func TestParseCron(t *testing.T) {
	almaty := time.FixedZone("ALMT", 5*3600)
	cs, err := ParseCron(EveryDayMidnight, almaty)
	require.NoError(t, err)

	after := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) // 14:00 local
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, almaty), cs.Next(after))

	cs, err = ParseCron("*/15 9-10 * * 1,3", time.UTC)
	require.NoError(t, err)
	// Monday 2025-03-03 10:50 -> Wednesday 09:00.
	assert.Equal(t, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), cs.Next(time.Date(2025, 3, 3, 10, 50, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC), cs.Next(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)))

	for _, bad := range []string{"* * * *", "60 * * * *", "*/0 * * * *", "5-1 * * * *", "x * * * *"} {
		_, err := ParseCron(bad, nil)
		assert.Error(t, err, bad)
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("@every 10m", nil)
	require.NoError(t, err)
	assert.Equal(t, "@every 10m0s", s.String())

	s, err = ParseSchedule(EveryHour, nil)
	require.NoError(t, err)
	assert.Equal(t, EveryHour, s.String())

	_, err = ParseSchedule("@every soon", nil)
	assert.Error(t, err)
}
