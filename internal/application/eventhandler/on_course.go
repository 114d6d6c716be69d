package eventhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// OnCourseCompleted credits experience and statistics for a finished course,
// extends the course streak and advances course challenges.
// A zero score means the course was not graded and leaves the average alone.
func (h *Handlers) OnCourseCompleted(ctx context.Context, event shared.Event) error {
	var e shared.CourseCompletedEvent
	switch v := event.(type) {
	case shared.CourseCompletedEvent:
		e = v
	case *shared.CourseCompletedEvent:
		e = *v
	default:
		return h.unexpected("course_completed", event)
	}
	userID := e.AggregateID()
	delta := progress.StatisticsDelta{
		CoursesCompleted: 1,
		StudyMinutes:     e.StudyMinutes,
		Score:            e.Score,
		HasScore:         e.Score > 0,
	}
	if err := checkAmounts("OnCourseCompleted", e.Experience, delta); err != nil {
		return fmt.Errorf("course completed: %w", err)
	}

	if _, err := h.engine.Progress.AddExperience(ctx, userID, e.Experience); err != nil {
		return fmt.Errorf("course completed: %w", err)
	}
	if _, err := h.engine.Progress.RecordStatistics(ctx, userID, delta); err != nil {
		return fmt.Errorf("course completed: %w", err)
	}
	if _, err := h.touchStreak(ctx, userID, streak.TypeCourseProgress, e.OccurredAt()); err != nil {
		return fmt.Errorf("course completed: %w", err)
	}
	err := h.advanceChallenges(ctx, userID,
		challengeStep{challenge.RequirementCoursesCompleted, 1},
		challengeStep{challenge.RequirementStudyMinutes, e.StudyMinutes},
	)
	if err != nil {
		return fmt.Errorf("course completed: %w", err)
	}

	granted, err := h.evaluate(ctx, userID)
	if err != nil {
		return fmt.Errorf("course completed: %w", err)
	}
	h.logger.Debug("course completed",
		zap.String("user_id", userID),
		zap.String("course_id", e.CourseID),
		zap.Int("experience", e.Experience),
		zap.Int("achievements", len(granted)),
	)
	return nil
}

// OnCourseProgressed credits experience and study time for a finished
// lesson or module and extends the course streak.
func (h *Handlers) OnCourseProgressed(ctx context.Context, event shared.Event) error {
	var e shared.CourseProgressedEvent
	switch v := event.(type) {
	case shared.CourseProgressedEvent:
		e = v
	case *shared.CourseProgressedEvent:
		e = *v
	default:
		return h.unexpected("course_progressed", event)
	}
	userID := e.AggregateID()
	delta := progress.StatisticsDelta{StudyMinutes: e.StudyMinutes}
	if err := checkAmounts("OnCourseProgressed", e.Experience, delta); err != nil {
		return fmt.Errorf("course progressed: %w", err)
	}

	if _, err := h.engine.Progress.AddExperience(ctx, userID, e.Experience); err != nil {
		return fmt.Errorf("course progressed: %w", err)
	}
	if !delta.IsZero() {
		if _, err := h.engine.Progress.RecordStatistics(ctx, userID, delta); err != nil {
			return fmt.Errorf("course progressed: %w", err)
		}
	}
	if _, err := h.touchStreak(ctx, userID, streak.TypeCourseProgress, e.OccurredAt()); err != nil {
		return fmt.Errorf("course progressed: %w", err)
	}
	err := h.advanceChallenges(ctx, userID,
		challengeStep{challenge.RequirementStudyMinutes, e.StudyMinutes},
	)
	if err != nil {
		return fmt.Errorf("course progressed: %w", err)
	}
	if _, err := h.evaluate(ctx, userID); err != nil {
		return fmt.Errorf("course progressed: %w", err)
	}
	return nil
}

// checkAmounts rejects a payload with any negative amount before the first
// mutation, so a bad event leaves no trace.
func checkAmounts(op string, experience int, delta progress.StatisticsDelta) error {
	if experience < 0 {
		return shared.NewDomainError("eventhandler", op, shared.ErrInvalidAmount, "experience cannot be negative")
	}
	if err := delta.Validate(); err != nil {
		return shared.WrapError("eventhandler", op, shared.ErrInvalidAmount, "invalid statistics", err)
	}
	return nil
}
