package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rps-arena/internal/arena"
)

const withdrawalColumns = `id, player_id, amount, status, requested_at, processed_at`

func scanWithdrawal(row pgx.Row) (arena.Withdrawal, error) {
	var (
		w         arena.Withdrawal
		status    string
		processed pgtype.Timestamptz
	)
	if err := row.Scan(&w.ID, &w.PlayerID, &w.Amount, &status, &w.RequestedAt, &processed); err != nil {
		return arena.Withdrawal{}, err
	}
	w.Status = arena.WithdrawalStatus(status)
	w.ProcessedAt = timePtrVal(processed)
	return w, nil
}

// CreateWithdrawal locks the player row, checks the daily limit against the
// requests already committed, then moves amount into locked balance. The row
// lock serializes concurrent requests from one player.
func (s *Store) CreateWithdrawal(ctx context.Context, playerID string, amount int64, at time.Time, limit arena.DailyCap) (arena.Withdrawal, error) {
	var out arena.Withdrawal
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if limit.Limit > 0 {
			today, err := sumWithdrawalsSince(ctx, tx, playerID, limit.Since)
			if err != nil {
				return err
			}
			if today+amount > limit.Limit {
				return arena.ErrDailyCapExceeded
			}
		}
		if p.Balance < amount {
			return arena.ErrInsufficientBalance
		}
		p.Balance -= amount
		p.LockedBalance += amount
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		out, err = scanWithdrawal(tx.QueryRow(ctx,
			`INSERT INTO withdrawals (id, player_id, amount, requested_at) VALUES ($1, $2, $3, $4) RETURNING `+withdrawalColumns,
			NewIDAt(at), playerID, amount, at))
		return err
	})
	return out, err
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (arena.Withdrawal, error) {
	w, err := scanWithdrawal(s.Pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
	if err != nil {
		return arena.Withdrawal{}, mapNotFound(err, arena.ErrWithdrawalNotFound)
	}
	return w, nil
}

func (s *Store) ResolveWithdrawal(ctx context.Context, id string, approve bool, at time.Time) (arena.Withdrawal, error) {
	var out arena.Withdrawal
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		w, err := scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return mapNotFound(err, arena.ErrWithdrawalNotFound)
		}
		if w.Status != arena.WithdrawalPending {
			return arena.ErrWithdrawalNotPending
		}
		p, err := lockPlayer(ctx, tx, w.PlayerID)
		if err != nil {
			return err
		}
		if p.LockedBalance < w.Amount {
			return arena.ErrInsufficientLockedBalance
		}
		p.LockedBalance -= w.Amount
		status := arena.WithdrawalRejected
		if approve {
			status = arena.WithdrawalApproved
			if err := insertTx(ctx, tx, p.ID, -w.Amount, arena.TxWithdrawal, "", at); err != nil {
				return err
			}
		} else {
			p.Balance += w.Amount
		}
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		out, err = scanWithdrawal(tx.QueryRow(ctx,
			`UPDATE withdrawals SET status = $2, processed_at = $3 WHERE id = $1 RETURNING `+withdrawalColumns,
			id, string(status), at))
		return err
	})
	return out, err
}

func (s *Store) SumWithdrawalsSince(ctx context.Context, playerID string, since time.Time) (int64, error) {
	return sumWithdrawalsSince(ctx, s.Pool, playerID, since)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumWithdrawalsSince(ctx context.Context, q rowQuerier, playerID string, since time.Time) (int64, error) {
	var total int64
	err := q.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)::BIGINT
FROM withdrawals
WHERE player_id = $1 AND status <> 'rejected' AND requested_at >= $2`, playerID, since).Scan(&total)
	return total, err
}
