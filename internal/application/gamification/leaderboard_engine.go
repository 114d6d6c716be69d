package gamification

import (
	"context"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENGINE
// Ranks are recomputed and stored on every write. A mutation of one board
// runs under the board lock, so concurrent score updates never interleave
// half-applied rankings.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardEngine owns Leaderboard records.
type LeaderboardEngine struct {
	core     *core
	progress *ProgressStore
}

// Create stores a new active board without participants.
// Weekly and monthly boards without an end date close at the end of the
// start week or month in the engine location.
func (e *LeaderboardEngine) Create(ctx context.Context, def leaderboard.Definition) (*leaderboard.Leaderboard, error) {
	if err := e.core.validateStruct("leaderboard", "Create", def); err != nil {
		return nil, err
	}
	now := e.core.now()
	if def.StartDate.IsZero() {
		def.StartDate = now
	}
	if def.EndDate == nil {
		switch def.Type {
		case leaderboard.TypeWeekly:
			end := timeutil.EndOfWeek(def.StartDate, e.core.loc)
			def.EndDate = &end
		case leaderboard.TypeMonthly:
			end := timeutil.EndOfMonth(def.StartDate, e.core.loc)
			def.EndDate = &end
		}
	}

	id := def.ID
	if id == "" {
		id = e.core.newID()
	}

	unlock := e.core.locks.Lock(leaderboardLock(id))
	defer unlock()

	_, exists, err := e.core.leaderboards.Find(ctx, id)
	if err != nil {
		return nil, wrap("leaderboard", "Create", err)
	}
	if exists {
		return nil, validationFailed("leaderboard", "Create", "leaderboard "+id+" already exists")
	}

	l, err := leaderboard.New(id, def, now)
	if err != nil {
		return nil, wrap("leaderboard", "Create", err)
	}
	if err := e.core.leaderboards.Put(ctx, id, l); err != nil {
		return nil, wrap("leaderboard", "Create", err)
	}
	return l, nil
}

// Get returns one board.
func (e *LeaderboardEngine) Get(ctx context.Context, id string) (*leaderboard.Leaderboard, error) {
	return e.load(ctx, "Get", id)
}

// Join adds the user to the board, seeding points from the user's current
// total. Joining twice is a no-op.
func (e *LeaderboardEngine) Join(ctx context.Context, id, userID string) (*leaderboard.Leaderboard, error) {
	unlock := e.core.locks.Lock(leaderboardLock(id))
	defer unlock()

	l, err := e.load(ctx, "Join", id)
	if err != nil {
		return nil, err
	}
	if l.HasParticipant(userID) {
		return l, nil
	}
	now := e.core.now()
	if !isOpen(l, now) {
		return nil, wrap("leaderboard", "Join", leaderboard.ErrInactive)
	}

	// board lock -> user lock
	p, err := e.progress.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := l.Join(userID, p.TotalPoints, now); err != nil {
		return nil, wrap("leaderboard", "Join", err)
	}
	if err := e.core.leaderboards.Put(ctx, id, l); err != nil {
		return nil, wrap("leaderboard", "Join", err)
	}
	return l, nil
}

// UpdateScore sets the participant's points to newPoints (absolute, not a
// delta) and re-ranks. A non-participant gets ErrNotAParticipant and the
// board stays unchanged.
func (e *LeaderboardEngine) UpdateScore(ctx context.Context, id, userID string, newPoints int) (*leaderboard.Leaderboard, error) {
	if newPoints < 0 {
		return nil, invalidAmount("leaderboard", "UpdateScore", newPoints)
	}

	unlock := e.core.locks.Lock(leaderboardLock(id))
	defer unlock()

	l, err := e.load(ctx, "UpdateScore", id)
	if err != nil {
		return nil, err
	}
	if !l.HasParticipant(userID) {
		return nil, wrap("leaderboard", "UpdateScore", leaderboard.ErrNotAParticipant)
	}
	now := e.core.now()
	if !isOpen(l, now) {
		return nil, wrap("leaderboard", "UpdateScore", leaderboard.ErrInactive)
	}
	if err := l.SetScore(userID, newPoints, now); err != nil {
		return nil, wrap("leaderboard", "UpdateScore", err)
	}
	if err := e.core.leaderboards.Put(ctx, id, l); err != nil {
		return nil, wrap("leaderboard", "UpdateScore", err)
	}
	return l, nil
}

// List returns boards matching filter, most recent start date first.
func (e *LeaderboardEngine) List(ctx context.Context, filter leaderboard.Filter) ([]*leaderboard.Leaderboard, error) {
	all, err := e.core.leaderboards.List(ctx, "")
	if err != nil {
		return nil, wrap("leaderboard", "List", err)
	}
	return filter.Apply(all), nil
}

// SyncStandings pushes the user's point total to every open board they
// belong to. Boards where the score does not change are not rewritten.
// Returns the boards that were updated.
func (e *LeaderboardEngine) SyncStandings(ctx context.Context, userID string, points int) ([]*leaderboard.Leaderboard, error) {
	if points < 0 {
		return nil, invalidAmount("leaderboard", "SyncStandings", points)
	}
	active := true
	boards, err := e.List(ctx, leaderboard.Filter{IsActive: &active})
	if err != nil {
		return nil, err
	}

	var updated []*leaderboard.Leaderboard
	for _, b := range boards {
		if p, ok := b.Participant(userID); !ok || p.Points == points {
			continue
		}
		l, changed, err := e.syncOne(ctx, b.ID, userID, points)
		if err != nil {
			return updated, err
		}
		if changed {
			updated = append(updated, l)
		}
	}
	return updated, nil
}

func (e *LeaderboardEngine) syncOne(ctx context.Context, id, userID string, points int) (*leaderboard.Leaderboard, bool, error) {
	unlock := e.core.locks.Lock(leaderboardLock(id))
	defer unlock()

	// Re-read under the lock; the list snapshot may be stale.
	l, err := e.load(ctx, "SyncStandings", id)
	if err != nil {
		return nil, false, err
	}
	now := e.core.now()
	p, ok := l.Participant(userID)
	if !ok || p.Points == points || !isOpen(l, now) {
		return l, false, nil
	}
	if err := l.SetScore(userID, points, now); err != nil {
		return nil, false, wrap("leaderboard", "SyncStandings", err)
	}
	if err := e.core.leaderboards.Put(ctx, id, l); err != nil {
		return nil, false, wrap("leaderboard", "SyncStandings", err)
	}
	return l, true, nil
}

// CloseExpired deactivates every active board whose end date has passed.
// Returns the number of boards closed.
func (e *LeaderboardEngine) CloseExpired(ctx context.Context) (int, error) {
	active := true
	boards, err := e.List(ctx, leaderboard.Filter{IsActive: &active})
	if err != nil {
		return 0, err
	}
	now := e.core.now()
	closed := 0
	for _, b := range boards {
		if !b.IsExpired(now) {
			continue
		}
		ok, err := e.closeOne(ctx, b.ID, now)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

func (e *LeaderboardEngine) closeOne(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := e.core.locks.Lock(leaderboardLock(id))
	defer unlock()

	l, err := e.load(ctx, "CloseExpired", id)
	if err != nil {
		return false, err
	}
	if !l.IsExpired(now) || !l.Close(now) {
		return false, nil
	}
	if err := e.core.leaderboards.Put(ctx, id, l); err != nil {
		return false, wrap("leaderboard", "CloseExpired", err)
	}
	return true, nil
}

func (e *LeaderboardEngine) load(ctx context.Context, op, id string) (*leaderboard.Leaderboard, error) {
	l, ok, err := e.core.leaderboards.Find(ctx, id)
	if err != nil {
		return nil, wrap("leaderboard", op, err)
	}
	if !ok {
		return nil, notFound("leaderboard", op, id)
	}
	return l, nil
}

// isOpen treats a board past its end date as closed even before the
// close-expired job flips IsActive.
func isOpen(l *leaderboard.Leaderboard, now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}
