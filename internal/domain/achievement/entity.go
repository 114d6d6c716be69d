// Package achievement содержит доменную модель достижений.
// Достижение неизменяемо после разблокировки; на пару
// (пользователь, определение) приходится не больше одной записи.
package achievement

import (
	"fmt"
	"sort"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Type - категория достижения.
type Type string

const (
	TypeCourseCompletion Type = "course_completion"
	TypeStreak           Type = "streak"
	TypeParticipation    Type = "participation"
	TypeHelpful          Type = "helpful"
	TypeSocial           Type = "social"
	TypeMilestone        Type = "milestone"
)

// IsValid проверяет тип достижения.
func (t Type) IsValid() bool {
	switch t {
	case TypeCourseCompletion, TypeStreak, TypeParticipation,
		TypeHelpful, TypeSocial, TypeMilestone:
		return true
	default:
		return false
	}
}

// Rarity - редкость достижения. Не зависит от количества очков.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities возвращает все уровни редкости от частого к редкому.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// IsValid проверяет редкость.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition описывает логическое достижение. ID определения - ключ
// идемпотентности: повторная разблокировка того же ID ничего не меняет.
type Definition struct {
	ID          string `json:"id" yaml:"id" validate:"required,max=64"`
	Type        Type   `json:"type" yaml:"type" validate:"required,oneof=course_completion streak participation helpful social milestone"`
	Title       string `json:"title" yaml:"title" validate:"required,max=120"`
	Description string `json:"description" yaml:"description" validate:"max=500"`
	Points      int    `json:"points" yaml:"points" validate:"gte=0"`
	Rarity      Rarity `json:"rarity" yaml:"rarity" validate:"required,oneof=common rare epic legendary"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT (Entity)
// ══════════════════════════════════════════════════════════════════════════════

// Achievement - разблокированное достижение пользователя.
type Achievement struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	DefinitionID string    `json:"definition_id"`
	Type         Type      `json:"type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Points       int       `json:"points"`
	Rarity       Rarity    `json:"rarity"`
	UnlockedAt   time.Time `json:"unlocked_at"`
}

// Unlock создаёт запись о разблокировке определения def.
func Unlock(id, userID string, def Definition, now time.Time) (*Achievement, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if def.ID == "" {
		return nil, ErrEmptyDefinitionID
	}
	if def.Points < 0 {
		return nil, ErrNegativePoints
	}
	return &Achievement{
		ID:           id,
		UserID:       userID,
		DefinitionID: def.ID,
		Type:         def.Type,
		Title:        def.Title,
		Description:  def.Description,
		Points:       def.Points,
		Rarity:       def.Rarity,
		UnlockedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// RecentLimit - сколько последних достижений попадает в Stats.
const RecentLimit = 5

// Stats - агрегированная статистика достижений пользователя.
type Stats struct {
	TotalAchievements  int            `json:"total_achievements"`
	TotalPoints        int            `json:"total_points"`
	RarityBreakdown    map[Rarity]int `json:"rarity_breakdown"`
	RecentAchievements []*Achievement `json:"recent_achievements"`
}

// ComputeStats считает статистику по списку достижений.
// Последние достижения отсортированы от новых к старым; при равном времени по ID.
func ComputeStats(list []*Achievement) *Stats {
	stats := &Stats{
		RarityBreakdown:    make(map[Rarity]int, len(Rarities())),
		RecentAchievements: []*Achievement{},
	}
	for _, r := range Rarities() {
		stats.RarityBreakdown[r] = 0
	}

	for _, a := range list {
		stats.TotalAchievements++
		stats.TotalPoints += a.Points
		stats.RarityBreakdown[a.Rarity]++
	}

	sorted := make([]*Achievement, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UnlockedAt.Equal(sorted[j].UnlockedAt) {
			return sorted[i].UnlockedAt.After(sorted[j].UnlockedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}
	stats.RecentAchievements = sorted

	return stats
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyUserID - пустой идентификатор пользователя.
	ErrEmptyUserID = fmt.Errorf("achievement: user id cannot be empty: %w", shared.ErrValidation)

	// ErrEmptyDefinitionID - определение без идентификатора.
	ErrEmptyDefinitionID = fmt.Errorf("achievement: definition id cannot be empty: %w", shared.ErrValidation)

	// ErrNegativePoints - отрицательные очки в определении.
	ErrNegativePoints = fmt.Errorf("achievement: points: %w", shared.ErrInvalidAmount)
)
