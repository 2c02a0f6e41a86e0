package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rps-arena/internal/arena"
)

const matchColumns = `id, player1_id, player2_id, stake, player1_score, player2_score, status,
winner_id, player1_ip, player2_ip, created_at, finished_at`

func scanMatch(row pgx.Row) (arena.Match, error) {
	var (
		m        arena.Match
		status   string
		winner   pgtype.Text
		finished pgtype.Timestamptz
	)
	if err := row.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.Stake, &m.Player1Score, &m.Player2Score,
		&status, &winner, &m.Player1IP, &m.Player2IP, &m.CreatedAt, &finished); err != nil {
		return arena.Match{}, err
	}
	m.Status = arena.MatchStatus(status)
	m.WinnerID = textVal(winner)
	m.FinishedAt = timePtrVal(finished)
	return m, nil
}

// CreateMatchWithEscrow debits both stakes and inserts the active match in one
// transaction. A short balance surfaces as *arena.EscrowError and rolls back.
func (s *Store) CreateMatchWithEscrow(ctx context.Context, nm arena.NewMatch) (arena.Match, error) {
	createdAt := nm.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	id := NewIDAt(createdAt)
	var out arena.Match
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		players, err := lockPlayersOrdered(ctx, tx, nm.Player1ID, nm.Player2ID)
		if err != nil {
			return err
		}
		for _, pid := range []string{nm.Player1ID, nm.Player2ID} {
			if players[pid].Balance < nm.Stake {
				return &arena.EscrowError{PlayerID: pid, Cause: arena.ErrInsufficientBalance}
			}
		}
		out, err = scanMatch(tx.QueryRow(ctx, `
INSERT INTO matches (id, player1_id, player2_id, stake, status, player1_ip, player2_ip, created_at)
VALUES ($1, $2, $3, $4, 'active', $5, $6, $7)
RETURNING `+matchColumns,
			id, nm.Player1ID, nm.Player2ID, nm.Stake, nm.Player1IP, nm.Player2IP, createdAt))
		if err != nil {
			return err
		}
		for _, pid := range []string{nm.Player1ID, nm.Player2ID} {
			p := players[pid]
			p.Balance -= nm.Stake
			if err := updateBalances(ctx, tx, p); err != nil {
				return err
			}
			if err := insertTx(ctx, tx, pid, -nm.Stake, arena.TxStake, id, createdAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return arena.Match{}, err
	}
	return out, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (arena.Match, error) {
	m, err := scanMatch(s.Pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		return arena.Match{}, mapNotFound(err, arena.ErrMatchNotFound)
	}
	return m, nil
}

func scoreColumn(slot arena.Slot) string {
	if slot == arena.SlotPlayer2 {
		return "player2_score"
	}
	return "player1_score"
}

func (s *Store) RecordRoundWin(ctx context.Context, matchID string, slot arena.Slot) (arena.Match, error) {
	col := scoreColumn(slot)
	m, err := scanMatch(s.Pool.QueryRow(ctx,
		`UPDATE matches SET `+col+` = `+col+` + 1 WHERE id = $1 AND status = 'active' RETURNING `+matchColumns,
		matchID))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return arena.Match{}, err
	}
	if _, getErr := s.GetMatch(ctx, matchID); getErr != nil {
		return arena.Match{}, getErr
	}
	return arena.Match{}, arena.ErrMatchNotActive
}

// RecentMatches returns the player's most recent matches, newest first,
// skipping excludeMatchID.
func (s *Store) RecentMatches(ctx context.Context, playerID string, limit int, excludeMatchID string) ([]arena.Match, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE (player1_id = $1 OR player2_id = $1) AND id <> $2
ORDER BY created_at DESC, id DESC
LIMIT $3`, playerID, excludeMatchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]arena.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PairMatches returns up to limit of the most recent matches between a and b
// in either seat order, newest first, skipping excludeMatchID.
func (s *Store) PairMatches(ctx context.Context, a, b string, limit int, excludeMatchID string) ([]arena.Match, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE ((player1_id = $1 AND player2_id = $2) OR (player1_id = $2 AND player2_id = $1))
  AND id <> $3
ORDER BY created_at DESC, id DESC
LIMIT $4`, a, b, excludeMatchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]arena.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CountMatchesSince(ctx context.Context, playerID string, since time.Time) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM matches WHERE (player1_id = $1 OR player2_id = $1) AND created_at >= $2`,
		playerID, since).Scan(&n)
	return n, err
}
