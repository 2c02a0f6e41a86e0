package memstore

import (
	"context"
	"time"

	"rps-arena/internal/arena"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Store) Stats(ctx context.Context, now time.Time) (arena.PlatformStats, error) {
	if err := ctx.Err(); err != nil {
		return arena.PlatformStats{}, err
	}
	today := startOfDay(now)
	var out arena.PlatformStats

	s.logMu.Lock()
	for _, r := range s.revenue {
		out.TotalRake += r.Amount
		if !r.CreatedAt.Before(today) {
			out.TodayRake += r.Amount
		}
	}
	s.logMu.Unlock()

	s.mu.RLock()
	players := make([]*playerRow, 0, len(s.players))
	for _, row := range s.players {
		players = append(players, row)
	}
	matches := make([]*matchRow, 0, len(s.matches))
	for _, row := range s.matches {
		matches = append(matches, row)
	}
	s.mu.RUnlock()

	for _, row := range players {
		row.mu.Lock()
		created := row.p.CreatedAt
		row.mu.Unlock()
		out.TotalPlayers++
		if !created.Before(today) {
			out.NewPlayersToday++
		}
	}
	for _, row := range matches {
		row.mu.Lock()
		created := row.m.CreatedAt
		row.mu.Unlock()
		out.TotalMatches++
		if !created.Before(today) {
			out.MatchesToday++
		}
	}
	return out, nil
}

// Revenue returns a copy of the platform revenue records.
func (s *Store) Revenue() []arena.PlatformRevenue {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return append([]arena.PlatformRevenue(nil), s.revenue...)
}
