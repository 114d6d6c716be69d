// Package progress содержит доменную модель прогресса пользователя:
// очки, опыт, уровень и накопительную статистику обучения.
// Запись создаётся лениво при первом обращении и никогда не удаляется.
package progress

import (
	"fmt"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// ExperiencePerLevel - сколько опыта нужно на один уровень.
	ExperiencePerLevel = 100

	// ExperiencePerPoint - сколько опыта даёт одно очко рейтинга.
	ExperiencePerPoint = 10
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// LevelFor возвращает уровень для указанного опыта: floor(exp/100) + 1.
func LevelFor(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return experience/ExperiencePerLevel + 1
}

// ExperienceToNextLevel возвращает, сколько опыта осталось до следующего уровня.
func ExperienceToNextLevel(experience int) int {
	return LevelFor(experience)*ExperiencePerLevel - experience
}

// pointsFromExperience - вклад опыта в очки: floor(exp/10).
func pointsFromExperience(experience int) int {
	return experience / ExperiencePerPoint
}

// Statistics - накопительная статистика обучения.
type Statistics struct {
	// CoursesCompleted - количество завершённых курсов.
	CoursesCompleted int `json:"courses_completed"`

	// TotalStudyTime - суммарное время обучения в минутах.
	TotalStudyTime int `json:"total_study_time"`

	// SocialInteractions - комментарии, лайки, посты.
	SocialInteractions int `json:"social_interactions"`

	// HelpfulContributions - сколько раз пользователь помог другим.
	HelpfulContributions int `json:"helpful_contributions"`

	// DaysActive - количество различных дней с активностью.
	DaysActive int `json:"days_active"`

	// AverageScore - средний балл по оценённым курсам.
	AverageScore float64 `json:"average_score"`

	// ScoredCourses - сколько курсов участвовало в расчёте AverageScore.
	ScoredCourses int `json:"scored_courses"`
}

// StatisticsDelta - приращение статистики.
// Все поля неотрицательные; Score учитывается, только если HasScore.
type StatisticsDelta struct {
	CoursesCompleted     int
	StudyMinutes         int
	SocialInteractions   int
	HelpfulContributions int
	DaysActive           int
	Score                int
	HasScore             bool
}

// Validate проверяет, что приращение неотрицательное.
func (d StatisticsDelta) Validate() error {
	if d.CoursesCompleted < 0 || d.StudyMinutes < 0 || d.SocialInteractions < 0 ||
		d.HelpfulContributions < 0 || d.DaysActive < 0 || d.Score < 0 {
		return ErrNegativeDelta
	}
	return nil
}

// IsZero возвращает true, если приращение ничего не меняет.
func (d StatisticsDelta) IsZero() bool {
	return d == StatisticsDelta{}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress - прогресс одного пользователя.
//
// Инварианты:
//   - Level = floor(Experience/100) + 1 и никогда не уменьшается
//   - TotalPoints = floor(Experience/10) + очки за достижения и награды
type UserProgress struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalPoints - суммарные очки (≥0).
	TotalPoints int `json:"total_points"`

	// Level - текущий уровень (≥1, вычисляемый).
	Level int `json:"level"`

	// Experience - накопленный опыт (≥0).
	Experience int `json:"experience"`

	// ExperienceToNextLevel - опыт до следующего уровня (вычисляемый).
	ExperienceToNextLevel int `json:"experience_to_next_level"`

	// Statistics - статистика обучения.
	Statistics Statistics `json:"statistics"`

	// CreatedAt - когда запись была создана.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// New создаёт нулевой прогресс пользователя.
func New(userID string, now time.Time) (*UserProgress, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	p := &UserProgress{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.recompute()
	return p, nil
}

// AddExperience начисляет опыт и соответствующие ему очки.
func (p *UserProgress) AddExperience(amount int, now time.Time) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	before := pointsFromExperience(p.Experience)
	p.Experience += amount
	p.TotalPoints += pointsFromExperience(p.Experience) - before
	p.recompute()
	p.UpdatedAt = now
	return nil
}

// ApplyPoints начисляет очки напрямую, не затрагивая опыт и уровень.
func (p *UserProgress) ApplyPoints(points int, now time.Time) error {
	if points < 0 {
		return ErrNegativeAmount
	}
	p.TotalPoints += points
	p.UpdatedAt = now
	return nil
}

// ApplyStatistics добавляет приращение статистики.
func (p *UserProgress) ApplyStatistics(d StatisticsDelta, now time.Time) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s := &p.Statistics
	s.CoursesCompleted += d.CoursesCompleted
	s.TotalStudyTime += d.StudyMinutes
	s.SocialInteractions += d.SocialInteractions
	s.HelpfulContributions += d.HelpfulContributions
	s.DaysActive += d.DaysActive

	if d.HasScore {
		// Скользящее среднее, без хранения всех оценок
		total := s.AverageScore*float64(s.ScoredCourses) + float64(d.Score)
		s.ScoredCourses++
		s.AverageScore = total / float64(s.ScoredCourses)
	}

	p.UpdatedAt = now
	return nil
}

// recompute пересчитывает производные поля.
// Опыт не уменьшается, поэтому и уровень монотонен.
func (p *UserProgress) recompute() {
	level := LevelFor(p.Experience)
	if level < p.Level {
		level = p.Level
	}
	p.Level = level
	p.ExperienceToNextLevel = ExperienceToNextLevel(p.Experience)
}

// Clone создаёт копию прогресса.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyUserID - пустой идентификатор пользователя.
	ErrEmptyUserID = fmt.Errorf("progress: user id cannot be empty: %w", shared.ErrValidation)

	// ErrNegativeAmount - отрицательное количество опыта или очков.
	ErrNegativeAmount = fmt.Errorf("progress: %w", shared.ErrInvalidAmount)

	// ErrNegativeDelta - отрицательное приращение статистики.
	ErrNegativeDelta = fmt.Errorf("progress: statistics delta: %w", shared.ErrInvalidAmount)
)
