// Package challenge содержит доменную модель челленджей: ограниченных по
// времени заданий с набором требований. Прогресс ведётся отдельно для
// каждого участника, завершение вычисляется и не хранится.
package challenge

import (
	"fmt"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// RequirementType - измеряемый показатель требования.
// Список открыт: незнакомые типы допустимы в определениях.
type RequirementType string

const (
	RequirementCoursesCompleted     RequirementType = "courses_completed"
	RequirementStudyMinutes         RequirementType = "study_minutes"
	RequirementSocialInteractions   RequirementType = "social_interactions"
	RequirementHelpfulContributions RequirementType = "helpful_contributions"
	RequirementDailyLogins          RequirementType = "daily_logins"
)

// Requirement - одно условие челленджа: Current из Target.
type Requirement struct {
	Type        RequirementType `json:"type" yaml:"type" validate:"required,max=64"`
	Target      int             `json:"target" yaml:"target" validate:"gt=0"`
	Current     int             `json:"current" yaml:"-" validate:"gte=0"`
	Description string          `json:"description" yaml:"description" validate:"max=500"`
}

// IsSatisfied проверяет выполнение условия.
func (r Requirement) IsSatisfied() bool {
	return r.Current >= r.Target
}

// add увеличивает Current на delta, не превышая Target.
func (r *Requirement) add(delta int) {
	r.Current = min(r.Current+delta, r.Target)
}

// Participant - участник челленджа со своим прогрессом.
type Participant struct {
	UserID       string        `json:"user_id"`
	JoinedAt     time.Time     `json:"joined_at"`
	Requirements []Requirement `json:"requirements"`
	LastUpdated  time.Time     `json:"last_updated"`
}

// IsComplete возвращает true, когда выполнены все требования.
func (p Participant) IsComplete() bool {
	for _, r := range p.Requirements {
		if !r.IsSatisfied() {
			return false
		}
	}
	return len(p.Requirements) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition - параметры создания челленджа.
type Definition struct {
	ID           string        `json:"id,omitempty" yaml:"id" validate:"omitempty,max=64"`
	Title        string        `json:"title" yaml:"title" validate:"required,max=120"`
	Description  string        `json:"description" yaml:"description" validate:"max=1000"`
	StartDate    time.Time     `json:"start_date" yaml:"start_date" validate:"required"`
	EndDate      time.Time     `json:"end_date" yaml:"end_date" validate:"required,gtfield=StartDate"`
	Requirements []Requirement `json:"requirements" yaml:"requirements" validate:"required,min=1,unique=Type,dive"`
	RewardPoints int           `json:"reward_points" yaml:"reward_points" validate:"gte=0"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// Challenge - челлендж с шаблоном требований и участниками.
//
// Инварианты:
//   - Current никогда не превышает Target
//   - каждый пользователь встречается среди участников не больше одного раза
type Challenge struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	IsActive     bool          `json:"is_active"`
	Requirements []Requirement `json:"requirements"`
	Participants []Participant `json:"participants"`
	RewardPoints int           `json:"reward_points"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// New создаёт активный челлендж без участников.
func New(id string, def Definition, now time.Time) (*Challenge, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if !def.EndDate.After(def.StartDate) {
		return nil, ErrInvalidPeriod
	}
	if len(def.Requirements) == 0 {
		return nil, ErrNoRequirements
	}
	reqs := make([]Requirement, len(def.Requirements))
	for i, r := range def.Requirements {
		if r.Target <= 0 {
			return nil, ErrInvalidTarget
		}
		r.Current = 0
		reqs[i] = r
	}
	return &Challenge{
		ID:           id,
		Title:        def.Title,
		Description:  def.Description,
		StartDate:    def.StartDate,
		EndDate:      def.EndDate,
		IsActive:     true,
		Requirements: reqs,
		Participants: []Participant{},
		RewardPoints: def.RewardPoints,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsOpen проверяет, что челлендж активен и now внутри окна [StartDate, EndDate].
func (c *Challenge) IsOpen(now time.Time) bool {
	return c.IsActive && !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// IsExpired возвращает true, если окно челленджа закончилось.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.EndDate)
}

func (c *Challenge) index(userID string) int {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Participant возвращает участника по ID.
func (c *Challenge) Participant(userID string) (Participant, bool) {
	i := c.index(userID)
	if i < 0 {
		return Participant{}, false
	}
	return c.Participants[i], true
}

// Join добавляет участника с нулевым прогрессом.
// Повторное вступление ничего не меняет и возвращает false.
func (c *Challenge) Join(userID string, now time.Time) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUserID
	}
	if !c.IsOpen(now) {
		return false, ErrInactive
	}
	if c.index(userID) >= 0 {
		return false, nil
	}
	reqs := make([]Requirement, len(c.Requirements))
	copy(reqs, c.Requirements)
	for i := range reqs {
		reqs[i].Current = 0
	}
	c.Participants = append(c.Participants, Participant{
		UserID:       userID,
		JoinedAt:     now,
		Requirements: reqs,
		LastUpdated:  now,
	})
	c.UpdatedAt = now
	return true, nil
}

// RecordProgress увеличивает прогресс участника по требованию типа reqType.
// Значение ограничивается Target. Возвращает false, если такого требования нет.
func (c *Challenge) RecordProgress(userID string, reqType RequirementType, delta int, now time.Time) (bool, error) {
	if delta <= 0 {
		return false, ErrNonPositiveDelta
	}
	i := c.index(userID)
	if i < 0 {
		return false, ErrNotAParticipant
	}
	if !c.IsOpen(now) {
		return false, ErrInactive
	}

	p := &c.Participants[i]
	for j := range p.Requirements {
		if p.Requirements[j].Type != reqType {
			continue
		}
		p.Requirements[j].add(delta)
		p.LastUpdated = now
		c.UpdatedAt = now
		return true, nil
	}
	return false, nil
}

// IsCompleteFor возвращает true, если участник выполнил все требования.
func (c *Challenge) IsCompleteFor(userID string) bool {
	p, ok := c.Participant(userID)
	return ok && p.IsComplete()
}

// CompletedCount возвращает количество участников, выполнивших челлендж.
func (c *Challenge) CompletedCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.IsComplete() {
			n++
		}
	}
	return n
}

// Close деактивирует челлендж. Возвращает false, если он уже закрыт.
func (c *Challenge) Close(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	c.IsActive = false
	c.UpdatedAt = now
	return true
}

// Clone создаёт глубокую копию челленджа.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Requirements = make([]Requirement, len(c.Requirements))
	copy(clone.Requirements, c.Requirements)
	clone.Participants = make([]Participant, len(c.Participants))
	for i, p := range c.Participants {
		p.Requirements = append([]Requirement(nil), p.Requirements...)
		clone.Participants[i] = p
	}
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrEmptyID          = fmt.Errorf("challenge: id cannot be empty: %w", shared.ErrValidation)
	ErrEmptyUserID      = fmt.Errorf("challenge: user id cannot be empty: %w", shared.ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("challenge: end date must be after start date: %w", shared.ErrValidation)
	ErrNoRequirements   = fmt.Errorf("challenge: at least one requirement is needed: %w", shared.ErrValidation)
	ErrInvalidTarget    = fmt.Errorf("challenge: requirement target must be positive: %w", shared.ErrValidation)
	ErrNonPositiveDelta = fmt.Errorf("challenge: progress delta must be positive: %w", shared.ErrInvalidAmount)
	ErrNotAParticipant  = fmt.Errorf("challenge: %w", shared.ErrNotAParticipant)
	ErrInactive         = fmt.Errorf("challenge: %w", shared.ErrInactive)
)
