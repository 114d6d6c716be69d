// Package leaderboard содержит доменную модель рейтингов.
// Лидерборд - именованный ранжированный список участников. Ранги хранятся
// и пересчитываются при каждой записи, а не при чтении.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Type - тип лидерборда.
type Type string

const (
	// TypeGlobal - общий рейтинг без ограничений по времени.
	TypeGlobal Type = "global"
	// TypeCourse - рейтинг в рамках одного курса.
	TypeCourse Type = "course"
	// TypeWeekly - недельный рейтинг.
	TypeWeekly Type = "weekly"
	// TypeMonthly - месячный рейтинг.
	TypeMonthly Type = "monthly"
)

// IsValid проверяет тип лидерборда.
func (t Type) IsValid() bool {
	switch t {
	case TypeGlobal, TypeCourse, TypeWeekly, TypeMonthly:
		return true
	default:
		return false
	}
}

// IsPeriodic возвращает true для рейтингов с естественным концом периода.
func (t Type) IsPeriodic() bool {
	return t == TypeWeekly || t == TypeMonthly
}

// Rank представляет позицию в лидерборде. Начинается с 1.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// RankChange - изменение позиции. Положительное значение = подъём.
type RankChange int

// Direction возвращает направление изменения.
func (rc RankChange) Direction() RankDirection {
	switch {
	case rc > 0:
		return RankDirectionUp
	case rc < 0:
		return RankDirectionDown
	default:
		return RankDirectionStable
	}
}

// RankDirection определяет направление изменения ранга.
type RankDirection string

const (
	RankDirectionUp     RankDirection = "up"
	RankDirectionDown   RankDirection = "down"
	RankDirectionStable RankDirection = "stable"
	RankDirectionNew    RankDirection = "new"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPANT
// ══════════════════════════════════════════════════════════════════════════════

// Participant - участник лидерборда.
type Participant struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`

	// Rank - текущая позиция (1..n без пропусков).
	Rank Rank `json:"rank"`

	// PreviousRank - позиция до последнего пересчёта (0 для новых участников).
	PreviousRank Rank `json:"previous_rank"`

	JoinedAt    time.Time `json:"joined_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// RankChange возвращает изменение позиции с прошлого пересчёта.
func (p Participant) RankChange() RankChange {
	if p.PreviousRank == 0 {
		return 0
	}
	return RankChange(p.PreviousRank - p.Rank)
}

// Direction возвращает направление движения участника.
func (p Participant) Direction() RankDirection {
	if p.PreviousRank == 0 {
		return RankDirectionNew
	}
	return p.RankChange().Direction()
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition - параметры создания лидерборда.
// Пустой ID заменяется сгенерированным.
type Definition struct {
	ID        string     `json:"id,omitempty" yaml:"id" validate:"omitempty,max=64"`
	Name      string     `json:"name" yaml:"name" validate:"required,max=120"`
	Type      Type       `json:"type" yaml:"type" validate:"required,oneof=global course weekly monthly"`
	CourseID  string     `json:"course_id,omitempty" yaml:"course_id" validate:"required_if=Type course"`
	StartDate time.Time  `json:"start_date" yaml:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" yaml:"end_date"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// Leaderboard - ранжированный список участников.
//
// Инварианты:
//   - ранги 1..n без пропусков и повторов
//   - порядок: очки по убыванию, затем JoinedAt по возрастанию, затем UserID
//   - участник встречается один раз
type Leaderboard struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         Type          `json:"type"`
	CourseID     string        `json:"course_id,omitempty"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      *time.Time    `json:"end_date,omitempty"`
	IsActive     bool          `json:"is_active"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// New создаёт активный лидерборд без участников.
// Нулевой StartDate заменяется на now.
func New(id string, def Definition, now time.Time) (*Leaderboard, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if !def.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, def.Type)
	}
	start := def.StartDate
	if start.IsZero() {
		start = now
	}
	if def.EndDate != nil && !def.EndDate.After(start) {
		return nil, ErrInvalidPeriod
	}
	return &Leaderboard{
		ID:           id,
		Name:         def.Name,
		Type:         def.Type,
		CourseID:     def.CourseID,
		StartDate:    start,
		EndDate:      def.EndDate,
		IsActive:     true,
		Participants: []Participant{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// index возвращает позицию участника в срезе или -1.
func (l *Leaderboard) index(userID string) int {
	for i := range l.Participants {
		if l.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Participant возвращает участника по ID.
func (l *Leaderboard) Participant(userID string) (Participant, bool) {
	i := l.index(userID)
	if i < 0 {
		return Participant{}, false
	}
	return l.Participants[i], true
}

// HasParticipant проверяет членство.
func (l *Leaderboard) HasParticipant(userID string) bool {
	return l.index(userID) >= 0
}

// Join добавляет участника с начальными очками и пересчитывает ранги.
// Повторное вступление ничего не меняет и возвращает false.
func (l *Leaderboard) Join(userID string, points int, now time.Time) (bool, error) {
	if !l.IsActive {
		return false, ErrInactive
	}
	if userID == "" {
		return false, ErrEmptyUserID
	}
	if l.HasParticipant(userID) {
		return false, nil
	}
	if points < 0 {
		return false, ErrNegativePoints
	}
	l.Participants = append(l.Participants, Participant{
		UserID:      userID,
		Points:      points,
		JoinedAt:    now,
		LastUpdated: now,
	})
	l.Rerank()
	l.UpdatedAt = now
	return true, nil
}

// SetScore устанавливает абсолютное значение очков участника и пересчитывает ранги.
func (l *Leaderboard) SetScore(userID string, points int, now time.Time) error {
	if points < 0 {
		return ErrNegativePoints
	}
	i := l.index(userID)
	if i < 0 {
		return ErrNotAParticipant
	}
	if !l.IsActive {
		return ErrInactive
	}
	l.Participants[i].Points = points
	l.Participants[i].LastUpdated = now
	l.Rerank()
	l.UpdatedAt = now
	return nil
}

// Rerank сортирует участников и присваивает ранги 1..n.
// Очки по убыванию; при равенстве раньше вступивший выше; затем UserID.
// Ранг до пересчёта сохраняется в PreviousRank.
func (l *Leaderboard) Rerank() {
	sort.SliceStable(l.Participants, func(i, j int) bool {
		a, b := l.Participants[i], l.Participants[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
	for i := range l.Participants {
		p := &l.Participants[i]
		p.PreviousRank = p.Rank
		p.Rank = Rank(i + 1)
	}
}

// IsExpired возвращает true, если период лидерборда закончился.
func (l *Leaderboard) IsExpired(now time.Time) bool {
	return l.EndDate != nil && now.After(*l.EndDate)
}

// Close деактивирует лидерборд. Возвращает false, если он уже закрыт.
func (l *Leaderboard) Close(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	l.IsActive = false
	l.UpdatedAt = now
	return true
}

// Top возвращает первых n участников.
func (l *Leaderboard) Top(n int) []Participant {
	if n <= 0 {
		return nil
	}
	if n > len(l.Participants) {
		n = len(l.Participants)
	}
	out := make([]Participant, n)
	copy(out, l.Participants[:n])
	return out
}

// Clone создаёт глубокую копию лидерборда.
func (l *Leaderboard) Clone() *Leaderboard {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Participants = make([]Participant, len(l.Participants))
	copy(clone.Participants, l.Participants)
	if l.EndDate != nil {
		end := *l.EndDate
		clone.EndDate = &end
	}
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter - параметры выборки лидербордов. Нулевые поля не фильтруют.
type Filter struct {
	Type     Type
	IsActive *bool
	Limit    int
}

// Matches проверяет лидерборд на соответствие фильтру.
func (f Filter) Matches(l *Leaderboard) bool {
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.IsActive != nil && l.IsActive != *f.IsActive {
		return false
	}
	return true
}

// Apply фильтрует, сортирует по StartDate (новые первыми, затем по ID)
// и обрезает результат по Limit.
func (f Filter) Apply(boards []*Leaderboard) []*Leaderboard {
	out := make([]*Leaderboard, 0, len(boards))
	for _, b := range boards {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyID - лидерборд без идентификатора.
	ErrEmptyID = fmt.Errorf("leaderboard: id cannot be empty: %w", shared.ErrValidation)

	// ErrEmptyUserID - пустой идентификатор участника.
	ErrEmptyUserID = fmt.Errorf("leaderboard: user id cannot be empty: %w", shared.ErrValidation)

	// ErrInvalidType - неизвестный тип лидерборда.
	ErrInvalidType = fmt.Errorf("leaderboard: invalid type: %w", shared.ErrValidation)

	// ErrInvalidPeriod - EndDate не позже StartDate.
	ErrInvalidPeriod = fmt.Errorf("leaderboard: end date must be after start date: %w", shared.ErrValidation)

	// ErrNegativePoints - отрицательные очки.
	ErrNegativePoints = fmt.Errorf("leaderboard: points: %w", shared.ErrInvalidAmount)

	// ErrNotAParticipant - пользователь не участвует в лидерборде.
	ErrNotAParticipant = fmt.Errorf("leaderboard: %w", shared.ErrNotAParticipant)

	// ErrInactive - лидерборд закрыт.
	ErrInactive = fmt.Errorf("leaderboard: %w", shared.ErrInactive)
)
