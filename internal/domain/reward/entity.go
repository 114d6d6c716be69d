// Package reward содержит доменную модель наград.
// Награда выдаётся пользователю и может быть получена ровно один раз:
// переход unclaimed -> claimed необратим.
package reward

import (
	"fmt"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// Source - откуда пришла награда.
type Source string

const (
	SourceChallenge   Source = "challenge"
	SourceLeaderboard Source = "leaderboard"
	SourceAchievement Source = "achievement"
	SourceManual      Source = "manual"
)

// Grant - параметры выдачи награды.
type Grant struct {
	Title       string `json:"title" yaml:"title" validate:"required,max=120"`
	Description string `json:"description" yaml:"description" validate:"max=500"`
	Points      int    `json:"points" yaml:"points" validate:"gte=0"`
	Source      Source `json:"source" yaml:"source" validate:"required,oneof=challenge leaderboard achievement manual"`
	SourceID    string `json:"source_id,omitempty" yaml:"source_id" validate:"max=64"`
}

// Reward - выданная награда.
type Reward struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Source      Source     `json:"source"`
	SourceID    string     `json:"source_id,omitempty"`
	IsClaimed   bool       `json:"is_claimed"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// New создаёт невостребованную награду.
func New(id, userID string, g Grant, now time.Time) (*Reward, error) {
	if id == "" || userID == "" {
		return nil, ErrEmptyID
	}
	if g.Points < 0 {
		return nil, ErrNegativePoints
	}
	return &Reward{
		ID:          id,
		UserID:      userID,
		Title:       g.Title,
		Description: g.Description,
		Points:      g.Points,
		Source:      g.Source,
		SourceID:    g.SourceID,
		CreatedAt:   now,
	}, nil
}

// Claim отмечает награду полученной.
// Повторный вызов возвращает ErrAlreadyClaimed и ничего не меняет.
func (r *Reward) Claim(userID string, now time.Time) error {
	if r.UserID != userID {
		return ErrNotOwner
	}
	if r.IsClaimed {
		return ErrAlreadyClaimed
	}
	r.IsClaimed = true
	at := now
	r.ClaimedAt = &at
	return nil
}

// Clone создаёт копию награды.
func (r *Reward) Clone() *Reward {
	if r == nil {
		return nil
	}
	clone := *r
	if r.ClaimedAt != nil {
		at := *r.ClaimedAt
		clone.ClaimedAt = &at
	}
	return &clone
}

var (
	ErrEmptyID        = fmt.Errorf("reward: id and user id are required: %w", shared.ErrValidation)
	ErrNegativePoints = fmt.Errorf("reward: points: %w", shared.ErrInvalidAmount)
	ErrNotOwner       = fmt.Errorf("reward: belongs to another user: %w", shared.ErrNotFound)
	ErrAlreadyClaimed = fmt.Errorf("reward: %w", shared.ErrAlreadyClaimed)
)
