package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"rps-arena/internal/arena"
)

func updateBalances(ctx context.Context, tx pgx.Tx, p arena.Player) error {
	_, err := tx.Exec(ctx, `UPDATE players SET balance = $2, locked_balance = $3 WHERE id = $1`,
		p.ID, p.Balance, p.LockedBalance)
	return err
}

func balanceOf(p arena.Player) arena.Balance {
	return arena.Balance{PlayerID: p.ID, Balance: p.Balance, Locked: p.LockedBalance}
}

func (s *Store) Credit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	var out arena.Balance
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		p.Balance += amount
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		if err := insertTx(ctx, tx, playerID, amount, kind, "", time.Now()); err != nil {
			return err
		}
		out = balanceOf(p)
		return nil
	})
	return out, err
}

func (s *Store) Debit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	var out arena.Balance
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if p.Balance < amount {
			return arena.ErrInsufficientBalance
		}
		p.Balance -= amount
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		if err := insertTx(ctx, tx, playerID, -amount, kind, "", time.Now()); err != nil {
			return err
		}
		out = balanceOf(p)
		return nil
	})
	return out, err
}

func (s *Store) Lock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	var out arena.Balance
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if p.Balance < amount {
			return arena.ErrInsufficientBalance
		}
		p.Balance -= amount
		p.LockedBalance += amount
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		out = balanceOf(p)
		return nil
	})
	return out, err
}

func (s *Store) Unlock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	var out arena.Balance
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if p.LockedBalance < amount {
			return arena.ErrInsufficientLockedBalance
		}
		p.LockedBalance -= amount
		p.Balance += amount
		if err := updateBalances(ctx, tx, p); err != nil {
			return err
		}
		out = balanceOf(p)
		return nil
	})
	return out, err
}
