package leaderboard

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - сводка лидерборда на момент времени.
// Используется в аналитике; сам лидерборд не меняет.
type Snapshot struct {
	LeaderboardID     string        `json:"leaderboard_id"`
	Type              Type          `json:"type"`
	IsActive          bool          `json:"is_active"`
	TotalParticipants int           `json:"total_participants"`
	TotalPoints       int           `json:"total_points"`
	AveragePoints     int           `json:"average_points"`
	MedianPoints      int           `json:"median_points"`
	Top               []Participant `json:"top"`
	SnapshotAt        time.Time     `json:"snapshot_at"`
}

// NewSnapshot строит сводку с топ-N участниками.
func NewSnapshot(l *Leaderboard, topN int, now time.Time) *Snapshot {
	s := &Snapshot{
		LeaderboardID:     l.ID,
		Type:              l.Type,
		IsActive:          l.IsActive,
		TotalParticipants: len(l.Participants),
		Top:               l.Top(topN),
		SnapshotAt:        now,
	}
	if s.Top == nil {
		s.Top = []Participant{}
	}
	if len(l.Participants) == 0 {
		return s
	}

	points := make([]int, len(l.Participants))
	for i, p := range l.Participants {
		points[i] = p.Points
		s.TotalPoints += p.Points
	}
	s.AveragePoints = s.TotalPoints / len(points)
	s.MedianPoints = median(points)
	return s
}

// median возвращает медиану (для чётного количества - среднее двух центральных).
func median(values []int) int {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
