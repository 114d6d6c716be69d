// Package streak содержит доменную модель серий активности.
// Серия - это количество подряд идущих календарных дней с активностью
// определённой категории. Одна серия на пару (пользователь, тип).
package streak

import (
	"fmt"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Type - категория серии.
type Type string

const (
	// TypeDailyLogin - ежедневный вход.
	TypeDailyLogin Type = "daily_login"
	// TypeCourseProgress - ежедневный прогресс по курсам.
	TypeCourseProgress Type = "course_progress"
	// TypeSocialParticipation - ежедневное участие в сообществе.
	TypeSocialParticipation Type = "social_participation"
)

// Types возвращает все поддерживаемые типы серий.
func Types() []Type {
	return []Type{TypeDailyLogin, TypeCourseProgress, TypeSocialParticipation}
}

// IsValid проверяет тип серии.
func (t Type) IsValid() bool {
	switch t {
	case TypeDailyLogin, TypeCourseProgress, TypeSocialParticipation:
		return true
	default:
		return false
	}
}

// Outcome - результат записи активности.
type Outcome string

const (
	// OutcomeStarted - первая активность, серия создана.
	OutcomeStarted Outcome = "started"
	// OutcomeContinued - следующий день, серия выросла.
	OutcomeContinued Outcome = "continued"
	// OutcomeUnchanged - тот же день, ничего не изменилось.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeBroken - пропущен день, серия начата заново.
	OutcomeBroken Outcome = "broken"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

// Streak представляет серию активных дней.
//
// Состояния: Absent (записи нет) -> Active(1) -> Active(n) -> Broken -> Active(1).
// CurrentStreak равен 0 только до первой активности.
type Streak struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Type - категория серии.
	Type Type `json:"type"`

	// CurrentStreak - текущая серия дней.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - исторический максимум CurrentStreak.
	LongestStreak int `json:"longest_streak"`

	// LastActivity - время последней засчитанной активности.
	LastActivity time.Time `json:"last_activity"`

	// StartDate - начало текущей серии.
	StartDate time.Time `json:"start_date"`

	// PreviousStreak - длина серии до последнего сброса (0, если сбросов не было).
	PreviousStreak int `json:"previous_streak"`
}

// New создаёт серию в состоянии до первой активности.
func New(userID string, t Type) (*Streak, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	return &Streak{UserID: userID, Type: t}, nil
}

// HasActivity возвращает true, если была хотя бы одна активность.
func (s *Streak) HasActivity() bool {
	return !s.LastActivity.IsZero()
}

// RecordActivity записывает активность в момент now.
// Разница дней считается по календарным датам в loc.
// При now раньше LastActivity возвращает ErrClockRegression и не меняет состояние.
func (s *Streak) RecordActivity(now time.Time, loc *time.Location) (Outcome, error) {
	// Первая активность
	if !s.HasActivity() {
		s.CurrentStreak = 1
		s.LongestStreak = max(s.LongestStreak, 1)
		s.LastActivity = now
		s.StartDate = now
		return OutcomeStarted, nil
	}

	if now.Before(s.LastActivity) {
		return "", ErrClockRegression
	}

	daysDiff := timeutil.CalendarDaysBetween(s.LastActivity, now, loc)

	switch {
	case daysDiff == 0:
		// Тот же день - ничего не меняем
		return OutcomeUnchanged, nil
	case daysDiff == 1:
		// Следующий день - продолжаем серию
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.LastActivity = now
		return OutcomeContinued, nil
	default:
		// Пропущены дни - сбрасываем серию
		s.PreviousStreak = s.CurrentStreak
		s.CurrentStreak = 1
		s.LastActivity = now
		s.StartDate = now
		return OutcomeBroken, nil
	}
}

// IsBroken проверяет, сломается ли серия при активности в момент now
// (пропущен как минимум один календарный день).
func (s *Streak) IsBroken(now time.Time, loc *time.Location) bool {
	if !s.HasActivity() {
		return false
	}
	return timeutil.CalendarDaysBetween(s.LastActivity, now, loc) > 1
}

// DaysUntilBreak возвращает количество дней до сброса серии.
// 2 - активность уже была сегодня, 1 - нужно быть активным сегодня, 0 - серия сброшена.
func (s *Streak) DaysUntilBreak(now time.Time, loc *time.Location) int {
	if !s.HasActivity() || s.CurrentStreak == 0 {
		return 0
	}
	switch timeutil.CalendarDaysBetween(s.LastActivity, now, loc) {
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}

// Clone создаёт копию серии.
func (s *Streak) Clone() *Streak {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyUserID - пустой идентификатор пользователя.
	ErrEmptyUserID = fmt.Errorf("streak: user id cannot be empty: %w", shared.ErrValidation)

	// ErrInvalidType - неизвестный тип серии.
	ErrInvalidType = fmt.Errorf("streak: invalid streak type: %w", shared.ErrValidation)

	// ErrClockRegression - время активности раньше последней записанной.
	ErrClockRegression = fmt.Errorf("streak: %w", shared.ErrClockRegression)
)
