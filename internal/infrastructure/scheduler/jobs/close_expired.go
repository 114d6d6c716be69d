// Package jobs holds the scheduled maintenance jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
)

// Expirer closes entities whose end date has passed and reports how many.
type Expirer interface {
	CloseExpired(ctx context.Context) (int, error)
}

// CloseExpiredJob deactivates finished leaderboards and challenges.
type CloseExpiredJob struct {
	leaderboards Expirer
	challenges   Expirer
	logger       *zap.Logger

	lastLeaderboards int
	lastChallenges   int
}

// NewCloseExpiredJob creates the job over an engine.
func NewCloseExpiredJob(engine *gamification.Engine, logger *zap.Logger) *CloseExpiredJob {
	return newCloseExpiredJob(engine.Leaderboards, engine.Challenges, logger)
}

func newCloseExpiredJob(leaderboards, challenges Expirer, logger *zap.Logger) *CloseExpiredJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloseExpiredJob{
		leaderboards: leaderboards,
		challenges:   challenges,
		logger:       logger.Named("close_expired"),
	}
}

// Name implements scheduler.Job.
func (j *CloseExpiredJob) Name() string { return "close_expired" }

// Description implements scheduler.Job.
func (j *CloseExpiredJob) Description() string {
	return "Deactivates leaderboards and challenges past their end date"
}

// Run implements scheduler.Job. Both sweeps run even if the first fails.
func (j *CloseExpiredJob) Run(ctx context.Context) error {
	boards, errBoards := j.leaderboards.CloseExpired(ctx)
	if errBoards != nil {
		errBoards = fmt.Errorf("close leaderboards: %w", errBoards)
	}
	challenges, errChallenges := j.challenges.CloseExpired(ctx)
	if errChallenges != nil {
		errChallenges = fmt.Errorf("close challenges: %w", errChallenges)
	}

	j.lastLeaderboards, j.lastChallenges = boards, challenges
	if boards > 0 || challenges > 0 {
		j.logger.Info("closed expired entities",
			zap.Int("leaderboards", boards),
			zap.Int("challenges", challenges),
		)
	}
	return errors.Join(errBoards, errChallenges)
}

// LastRun returns the counts closed by the most recent run.
func (j *CloseExpiredJob) LastRun() (leaderboards, challenges int) {
	return j.lastLeaderboards, j.lastChallenges
}
