package achievement

import (
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Metric - показатель пользователя, по которому проверяется правило.
type Metric string

const (
	MetricCoursesCompleted     Metric = "courses_completed"
	MetricHelpfulContributions Metric = "helpful_contributions"
	MetricSocialInteractions   Metric = "social_interactions"
	MetricLevel                Metric = "level"
	MetricDaysActive           Metric = "days_active"
	MetricStreak               Metric = "streak"
)

// Rule связывает определение с порогом показателя.
// Для MetricStreak учитывается текущая серия типа StreakType.
type Rule struct {
	Definition Definition
	Metric     Metric
	Threshold  int
	StreakType streak.Type
}

// Catalog возвращает встроенный набор достижений.
func Catalog() []Rule {
	return []Rule{
		{
			Definition: Definition{ID: "first_course", Type: TypeCourseCompletion, Title: "Первый курс", Description: "Завершён первый курс", Points: 50, Rarity: RarityCommon},
			Metric:     MetricCoursesCompleted, Threshold: 1,
		},
		{
			Definition: Definition{ID: "course_collector", Type: TypeCourseCompletion, Title: "Коллекционер курсов", Description: "Завершено 10 курсов", Points: 250, Rarity: RarityEpic},
			Metric:     MetricCoursesCompleted, Threshold: 10,
		},
		{
			Definition: Definition{ID: "login_streak_7", Type: TypeStreak, Title: "Неделя огня", Description: "7 дней входа подряд", Points: 100, Rarity: RarityRare},
			Metric:     MetricStreak, Threshold: 7, StreakType: streak.TypeDailyLogin,
		},
		{
			Definition: Definition{ID: "login_streak_30", Type: TypeStreak, Title: "Железная воля", Description: "30 дней входа подряд", Points: 500, Rarity: RarityLegendary},
			Metric:     MetricStreak, Threshold: 30, StreakType: streak.TypeDailyLogin,
		},
		{
			Definition: Definition{ID: "study_streak_7", Type: TypeStreak, Title: "Неделя учёбы", Description: "7 дней учёбы подряд", Points: 150, Rarity: RarityRare},
			Metric:     MetricStreak, Threshold: 7, StreakType: streak.TypeCourseProgress,
		},
		{
			Definition: Definition{ID: "regular_30", Type: TypeParticipation, Title: "Постоянный участник", Description: "30 активных дней", Points: 200, Rarity: RarityRare},
			Metric:     MetricDaysActive, Threshold: 30,
		},
		{
			Definition: Definition{ID: "helper_5", Type: TypeHelpful, Title: "Добрый самаритянин", Description: "Помог 5 участникам", Points: 150, Rarity: RarityRare},
			Metric:     MetricHelpfulContributions, Threshold: 5,
		},
		{
			Definition: Definition{ID: "mentor_20", Type: TypeHelpful, Title: "Наставник", Description: "Помог 20 участникам", Points: 400, Rarity: RarityEpic},
			Metric:     MetricHelpfulContributions, Threshold: 20,
		},
		{
			Definition: Definition{ID: "social_butterfly", Type: TypeSocial, Title: "Душа компании", Description: "50 социальных взаимодействий", Points: 100, Rarity: RarityCommon},
			Metric:     MetricSocialInteractions, Threshold: 50,
		},
		{
			Definition: Definition{ID: "level_5", Type: TypeMilestone, Title: "Подмастерье", Description: "Достигнут 5 уровень", Points: 100, Rarity: RarityCommon},
			Metric:     MetricLevel, Threshold: 5,
		},
		{
			Definition: Definition{ID: "level_10", Type: TypeMilestone, Title: "Мастер", Description: "Достигнут 10 уровень", Points: 250, Rarity: RarityEpic},
			Metric:     MetricLevel, Threshold: 10,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - состояние пользователя, по которому проверяются правила.
type Snapshot struct {
	Progress *progress.UserProgress
	Streaks  []*streak.Streak
}

// value возвращает значение показателя для правила.
func (s Snapshot) value(r Rule) int {
	if r.Metric == MetricStreak {
		for _, st := range s.Streaks {
			if st != nil && st.Type == r.StreakType {
				return st.CurrentStreak
			}
		}
		return 0
	}
	if s.Progress == nil {
		return 0
	}
	stats := s.Progress.Statistics
	switch r.Metric {
	case MetricCoursesCompleted:
		return stats.CoursesCompleted
	case MetricHelpfulContributions:
		return stats.HelpfulContributions
	case MetricSocialInteractions:
		return stats.SocialInteractions
	case MetricDaysActive:
		return stats.DaysActive
	case MetricLevel:
		return s.Progress.Level
	default:
		return 0
	}
}

// Checker проверяет, какие достижения пользователь заслужил.
type Checker struct {
	rules []Rule
}

// NewChecker создаёт проверщик для набора правил.
func NewChecker(rules []Rule) *Checker {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Checker{rules: cp}
}

// Qualified возвращает определения, пороги которых достигнуты и которые
// ещё не разблокированы. Порядок соответствует порядку правил.
func (c *Checker) Qualified(s Snapshot, unlocked map[string]bool) []Definition {
	var out []Definition
	for _, r := range c.rules {
		if unlocked[r.Definition.ID] {
			continue
		}
		if s.value(r) >= r.Threshold {
			out = append(out, r.Definition)
		}
	}
	return out
}
