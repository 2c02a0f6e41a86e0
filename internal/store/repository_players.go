package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rps-arena/internal/arena"
)

const playerColumns = `id, username, balance, locked_balance, flagged, rating, created_at`

func scanPlayer(row pgx.Row) (arena.Player, error) {
	var (
		p        arena.Player
		username pgtype.Text
	)
	if err := row.Scan(&p.ID, &username, &p.Balance, &p.LockedBalance, &p.Flagged, &p.Rating, &p.CreatedAt); err != nil {
		return arena.Player{}, err
	}
	p.Username = textVal(username)
	return p, nil
}

func (s *Store) CreatePlayer(ctx context.Context, username string, initialBalance int64) (arena.Player, error) {
	if initialBalance < 0 {
		return arena.Player{}, arena.ErrInvalidAmount
	}
	id := NewID()
	var p arena.Player
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		p, err = scanPlayer(tx.QueryRow(ctx,
			`INSERT INTO players (id, username, balance) VALUES ($1, $2, $3) RETURNING `+playerColumns,
			id, textParam(strings.TrimSpace(username)), initialBalance))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		if initialBalance > 0 {
			return insertTx(ctx, tx, id, initialBalance, arena.TxPurchase, "", p.CreatedAt)
		}
		return nil
	})
	if err != nil {
		return arena.Player{}, err
	}
	return p, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (arena.Player, error) {
	p, err := scanPlayer(s.Pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return arena.Player{}, mapNotFound(err, arena.ErrPlayerNotFound)
	}
	return p, nil
}

func (s *Store) SetFlagged(ctx context.Context, id string, flagged bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE players SET flagged = $2 WHERE id = $1`, id, flagged)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrPlayerNotFound
	}
	return nil
}

// lockPlayer selects the player row FOR UPDATE inside tx.
func lockPlayer(ctx context.Context, tx pgx.Tx, id string) (arena.Player, error) {
	p, err := scanPlayer(tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return arena.Player{}, mapNotFound(err, arena.ErrPlayerNotFound)
	}
	return p, nil
}

// lockPlayersOrdered locks both rows in ascending id order so two-player
// transactions never deadlock against each other.
func lockPlayersOrdered(ctx context.Context, tx pgx.Tx, a, b string) (map[string]arena.Player, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	out := make(map[string]arena.Player, 2)
	for _, id := range []string{first, second} {
		p, err := lockPlayer(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func insertTx(ctx context.Context, tx pgx.Tx, playerID string, amount int64, kind arena.TxKind, matchID string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, player_id, amount, kind, match_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		NewIDAt(at), playerID, amount, string(kind), textParam(matchID), at)
	return err
}

func (s *Store) ListTransactions(ctx context.Context, playerID string, limit, offset int) ([]arena.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
SELECT id, player_id, amount, kind, match_id, created_at
FROM transactions
WHERE ($1 = '' OR player_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, playerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]arena.Transaction, 0, limit)
	for rows.Next() {
		var (
			t       arena.Transaction
			kind    string
			matchID pgtype.Text
		)
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.Amount, &kind, &matchID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = arena.TxKind(kind)
		t.MatchID = textVal(matchID)
		out = append(out, t)
	}
	return out, rows.Err()
}
