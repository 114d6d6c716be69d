package gamification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE TRACKER
// Progress is tracked per participant and capped at each requirement's
// target. Completion is derived (Challenge.IsCompleteFor), never stored.
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeTracker owns Challenge records.
type ChallengeTracker struct {
	core *core
}

// Create stores a new active challenge without participants.
func (t *ChallengeTracker) Create(ctx context.Context, def challenge.Definition) (*challenge.Challenge, error) {
	if err := t.core.validateStruct("challenge", "Create", def); err != nil {
		return nil, err
	}
	id := def.ID
	if id == "" {
		id = t.core.newID()
	}

	unlock := t.core.locks.Lock(challengeLock(id))
	defer unlock()

	_, exists, err := t.core.challenges.Find(ctx, id)
	if err != nil {
		return nil, wrap("challenge", "Create", err)
	}
	if exists {
		return nil, validationFailed("challenge", "Create", "challenge "+id+" already exists")
	}

	c, err := challenge.New(id, def, t.core.now())
	if err != nil {
		return nil, wrap("challenge", "Create", err)
	}
	if err := t.core.challenges.Put(ctx, id, c); err != nil {
		return nil, wrap("challenge", "Create", err)
	}
	return c, nil
}

// Get returns one challenge.
func (t *ChallengeTracker) Get(ctx context.Context, id string) (*challenge.Challenge, error) {
	return t.load(ctx, "Get", id)
}

// List returns every challenge ordered by id.
func (t *ChallengeTracker) List(ctx context.Context) ([]*challenge.Challenge, error) {
	list, err := t.core.challenges.List(ctx, "")
	if err != nil {
		return nil, wrap("challenge", "List", err)
	}
	return list, nil
}

// Join adds the user to the challenge. Joining twice is a no-op; joining a
// closed challenge or outside its time window fails with ErrInactive.
func (t *ChallengeTracker) Join(ctx context.Context, id, userID string) (*challenge.Challenge, error) {
	unlock := t.core.locks.Lock(challengeLock(id))
	defer unlock()

	c, err := t.load(ctx, "Join", id)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Participant(userID); ok {
		return c, nil
	}
	if _, err := c.Join(userID, t.core.now()); err != nil {
		return nil, wrap("challenge", "Join", err)
	}
	if err := t.core.challenges.Put(ctx, id, c); err != nil {
		return nil, wrap("challenge", "Join", err)
	}
	return c, nil
}

// RecordProgress adds a positive delta to the participant's requirement of
// type reqType, capped at its target.
//
// An unknown requirement type is accepted and ignored with a warning, so
// producers can emit new types before challenges use them. When the update
// completes the challenge for the user and the challenge carries reward
// points, an unclaimed reward is granted in the same commit.
func (t *ChallengeTracker) RecordProgress(ctx context.Context, id, userID string, reqType challenge.RequirementType, delta int) (*challenge.Challenge, error) {
	if delta <= 0 {
		return nil, invalidAmount("challenge", "RecordProgress", delta)
	}

	unlock := t.core.locks.Lock(challengeLock(id))
	defer unlock()

	c, err := t.load(ctx, "RecordProgress", id)
	if err != nil {
		return nil, err
	}
	wasComplete := c.IsCompleteFor(userID)
	now := t.core.now()

	matched, err := c.RecordProgress(userID, reqType, delta, now)
	if err != nil {
		return nil, wrap("challenge", "RecordProgress", err)
	}
	if !matched {
		t.core.logger.Warn("unknown challenge requirement type",
			zap.String("challenge_id", id),
			zap.String("user_id", userID),
			zap.String("requirement_type", string(reqType)),
		)
		return c, nil
	}

	cw, err := t.core.challenges.Write(id, c)
	if err != nil {
		return nil, wrap("challenge", "RecordProgress", err)
	}
	writes := []shared.Write{cw}

	if !wasComplete && c.IsCompleteFor(userID) && c.RewardPoints > 0 {
		rw, err := t.completionReward(c, userID, now)
		if err != nil {
			return nil, wrap("challenge", "RecordProgress", err)
		}
		writes = append(writes, rw)
	}

	if err := t.core.store.Commit(ctx, writes...); err != nil {
		return nil, wrap("challenge", "RecordProgress", err)
	}
	return c, nil
}

// completionReward builds the reward write for a finished challenge.
// The reward id is derived from the challenge, so one user gets at most one
// reward per challenge.
func (t *ChallengeTracker) completionReward(c *challenge.Challenge, userID string, now time.Time) (shared.Write, error) {
	r, err := reward.New(CompletionRewardID(c.ID), userID, reward.Grant{
		Title:    c.Title,
		Points:   c.RewardPoints,
		Source:   reward.SourceChallenge,
		SourceID: c.ID,
	}, now)
	if err != nil {
		return shared.Write{}, err
	}
	return t.core.rewards.Write(reward.Key(userID, r.ID), r)
}

// CompletionRewardID returns the id of the reward granted for completing challengeID.
func CompletionRewardID(challengeID string) string {
	return "challenge-" + challengeID
}

// CloseExpired deactivates every active challenge whose end date has passed.
func (t *ChallengeTracker) CloseExpired(ctx context.Context) (int, error) {
	list, err := t.List(ctx)
	if err != nil {
		return 0, err
	}
	now := t.core.now()
	closed := 0
	for _, c := range list {
		if !c.IsActive || !c.IsExpired(now) {
			continue
		}
		ok, err := t.closeOne(ctx, c.ID, now)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

func (t *ChallengeTracker) closeOne(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := t.core.locks.Lock(challengeLock(id))
	defer unlock()

	c, err := t.load(ctx, "CloseExpired", id)
	if err != nil {
		return false, err
	}
	if !c.IsExpired(now) || !c.Close(now) {
		return false, nil
	}
	if err := t.core.challenges.Put(ctx, id, c); err != nil {
		return false, wrap("challenge", "CloseExpired", err)
	}
	return true, nil
}

func (t *ChallengeTracker) load(ctx context.Context, op, id string) (*challenge.Challenge, error) {
	c, ok, err := t.core.challenges.Find(ctx, id)
	if err != nil {
		return nil, wrap("challenge", op, err)
	}
	if !ok {
		return nil, notFound("challenge", op, id)
	}
	return c, nil
}
