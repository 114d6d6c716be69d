package eventhandler

import (
	"context"
	"fmt"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// SOCIAL EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// OnPeerHelped credits the helper with a helpful contribution.
func (h *Handlers) OnPeerHelped(ctx context.Context, event shared.Event) error {
	var e shared.PeerHelpedEvent
	switch v := event.(type) {
	case shared.PeerHelpedEvent:
		e = v
	case *shared.PeerHelpedEvent:
		e = *v
	default:
		return h.unexpected("peer_helped", event)
	}
	return h.social(ctx, "peer helped", e.AggregateID(), e,
		progress.StatisticsDelta{HelpfulContributions: 1},
		challengeStep{challenge.RequirementHelpfulContributions, 1},
	)
}

// OnSocialInteraction counts a comment, like or post.
func (h *Handlers) OnSocialInteraction(ctx context.Context, event shared.Event) error {
	var e shared.SocialInteractionEvent
	switch v := event.(type) {
	case shared.SocialInteractionEvent:
		e = v
	case *shared.SocialInteractionEvent:
		e = *v
	default:
		return h.unexpected("social_interaction", event)
	}
	return h.social(ctx, "social interaction", e.AggregateID(), e,
		progress.StatisticsDelta{SocialInteractions: 1},
		challengeStep{challenge.RequirementSocialInteractions, 1},
	)
}

func (h *Handlers) social(ctx context.Context, name, userID string, event shared.Event, delta progress.StatisticsDelta, step challengeStep) error {
	if _, err := h.engine.Progress.RecordStatistics(ctx, userID, delta); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := h.touchStreak(ctx, userID, streak.TypeSocialParticipation, event.OccurredAt()); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := h.advanceChallenges(ctx, userID, step); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := h.evaluate(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
