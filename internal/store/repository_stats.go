package store

import (
	"context"
	"time"

	"rps-arena/internal/arena"
)

func (s *Store) Stats(ctx context.Context, now time.Time) (arena.PlatformStats, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var out arena.PlatformStats
	err := s.Pool.QueryRow(ctx, `
SELECT
  (SELECT COALESCE(SUM(amount), 0)::BIGINT FROM platform_revenue),
  (SELECT COALESCE(SUM(amount), 0)::BIGINT FROM platform_revenue WHERE created_at >= $1),
  (SELECT count(*) FROM players),
  (SELECT count(*) FROM players WHERE created_at >= $1),
  (SELECT count(*) FROM matches),
  (SELECT count(*) FROM matches WHERE created_at >= $1)`, today).Scan(
		&out.TotalRake, &out.TodayRake,
		&out.TotalPlayers, &out.NewPlayersToday,
		&out.TotalMatches, &out.MatchesToday,
	)
	return out, err
}
