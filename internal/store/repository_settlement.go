package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rps-arena/internal/arena"
)

// SettleMatch closes the match in one transaction: final score increment,
// status/winner/finished_at, win credit, commission audit row, platform
// revenue and the optional rating update. A match that is already finished
// returns its recorded result and moves no coins.
func (s *Store) SettleMatch(ctx context.Context, st arena.Settlement) (arena.SettlementResult, error) {
	var res arena.SettlementResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		m, err := scanMatch(tx.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, st.MatchID))
		if err != nil {
			return mapNotFound(err, arena.ErrMatchNotFound)
		}
		if m.Status == arena.MatchFinished {
			res, err = recordedSettlement(ctx, tx, m)
			return err
		}
		if m.Status != arena.MatchActive {
			return arena.ErrMatchNotActive
		}
		winnerSlot, ok := m.Slot(st.WinnerID)
		if !ok {
			return arena.ErrNotParticipant
		}
		loserID := m.Opponent(st.WinnerID)

		players, err := lockPlayersOrdered(ctx, tx, st.WinnerID, loserID)
		if err != nil {
			return err
		}
		winner, loser := players[st.WinnerID], players[loserID]

		at := st.At
		if at.IsZero() {
			at = time.Now()
		}
		ratingApplied := st.Rate != nil
		if ratingApplied {
			winner.Rating, loser.Rating = st.Rate(winner.Rating, loser.Rating)
		}
		col := scoreColumn(winnerSlot)
		m, err = scanMatch(tx.QueryRow(ctx, `
UPDATE matches
SET `+col+` = `+col+` + 1, status = 'finished', winner_id = $2, finished_at = $3,
    rating_applied = $4, winner_rating = $5, loser_rating = $6
WHERE id = $1
RETURNING `+matchColumns,
			m.ID, st.WinnerID, at, ratingApplied, winner.Rating, loser.Rating))
		if err != nil {
			return err
		}

		winner.Balance += st.Reward
		if err := updateBalances(ctx, tx, winner); err != nil {
			return err
		}
		if ratingApplied {
			if _, err := tx.Exec(ctx, `UPDATE players SET rating = $2 WHERE id = $1`, winner.ID, winner.Rating); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE players SET rating = $2 WHERE id = $1`, loser.ID, loser.Rating); err != nil {
				return err
			}
		}
		if err := insertTx(ctx, tx, winner.ID, st.Reward, arena.TxWin, m.ID, at); err != nil {
			return err
		}
		if err := insertTx(ctx, tx, winner.ID, -st.Rake, arena.TxCommission, m.ID, at); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO platform_revenue (id, amount, match_id, created_at) VALUES ($1, $2, $3, $4)`,
			NewIDAt(at), st.Rake, m.ID, at); err != nil {
			return err
		}

		res = arena.SettlementResult{
			Match:         m,
			Reward:        st.Reward,
			Rake:          st.Rake,
			RatingApplied: ratingApplied,
			WinnerRating:  winner.Rating,
			LoserRating:   loser.Rating,
			WinnerBalance: winner.Balance,
		}
		return nil
	})
	if err != nil {
		return arena.SettlementResult{}, err
	}
	return res, nil
}

func recordedSettlement(ctx context.Context, tx pgx.Tx, m arena.Match) (arena.SettlementResult, error) {
	var (
		rake          int64
		ratingApplied bool
		winnerRating  pgtype.Int4
		loserRating   pgtype.Int4
		balance       int64
	)
	err := tx.QueryRow(ctx, `
SELECT COALESCE(r.amount, 0), m.rating_applied, m.winner_rating, m.loser_rating, p.balance
FROM matches m
JOIN players p ON p.id = m.winner_id
LEFT JOIN platform_revenue r ON r.match_id = m.id
WHERE m.id = $1`, m.ID).Scan(&rake, &ratingApplied, &winnerRating, &loserRating, &balance)
	if err != nil {
		return arena.SettlementResult{}, err
	}
	return arena.SettlementResult{
		Match:          m,
		Reward:         2*m.Stake - rake,
		Rake:           rake,
		RatingApplied:  ratingApplied,
		WinnerRating:   int4Val(winnerRating, arena.DefaultRating),
		LoserRating:    int4Val(loserRating, arena.DefaultRating),
		WinnerBalance:  balance,
		AlreadySettled: true,
	}, nil
}
