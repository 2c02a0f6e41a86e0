package memstore

import (
	"context"

	"rps-arena/internal/arena"
)

func (s *Store) Credit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	if err := ctx.Err(); err != nil {
		return arena.Balance{}, err
	}
	row, err := s.player(playerID)
	if err != nil {
		return arena.Balance{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	row.p.Balance += amount
	s.appendTx(playerID, amount, kind, "", s.clock.Now())
	return balanceOf(row.p), nil
}

func (s *Store) Debit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	if err := ctx.Err(); err != nil {
		return arena.Balance{}, err
	}
	row, err := s.player(playerID)
	if err != nil {
		return arena.Balance{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if row.p.Balance < amount {
		return arena.Balance{}, arena.ErrInsufficientBalance
	}
	row.p.Balance -= amount
	s.appendTx(playerID, -amount, kind, "", s.clock.Now())
	return balanceOf(row.p), nil
}

func (s *Store) Lock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	if err := ctx.Err(); err != nil {
		return arena.Balance{}, err
	}
	row, err := s.player(playerID)
	if err != nil {
		return arena.Balance{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if row.p.Balance < amount {
		return arena.Balance{}, arena.ErrInsufficientBalance
	}
	row.p.Balance -= amount
	row.p.LockedBalance += amount
	return balanceOf(row.p), nil
}

func (s *Store) Unlock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	if err := ctx.Err(); err != nil {
		return arena.Balance{}, err
	}
	row, err := s.player(playerID)
	if err != nil {
		return arena.Balance{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if row.p.LockedBalance < amount {
		return arena.Balance{}, arena.ErrInsufficientLockedBalance
	}
	row.p.LockedBalance -= amount
	row.p.Balance += amount
	return balanceOf(row.p), nil
}
