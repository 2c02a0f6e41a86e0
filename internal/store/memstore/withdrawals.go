package memstore

import (
	"context"
	"time"

	"rps-arena/internal/arena"
	"rps-arena/internal/store"
)

// CreateWithdrawal checks the daily limit and locks amount on the player
// under the player's row lock, then records a pending request.
func (s *Store) CreateWithdrawal(ctx context.Context, playerID string, amount int64, at time.Time, limit arena.DailyCap) (arena.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return arena.Withdrawal{}, err
	}
	row, err := s.player(playerID)
	if err != nil {
		return arena.Withdrawal{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if limit.Limit > 0 && s.sumWithdrawals(playerID, limit.Since)+amount > limit.Limit {
		return arena.Withdrawal{}, arena.ErrDailyCapExceeded
	}
	if row.p.Balance < amount {
		return arena.Withdrawal{}, arena.ErrInsufficientBalance
	}
	row.p.Balance -= amount
	row.p.LockedBalance += amount

	w := arena.Withdrawal{
		ID:          store.NewID(),
		PlayerID:    playerID,
		Amount:      amount,
		Status:      arena.WithdrawalPending,
		RequestedAt: at,
	}
	s.mu.Lock()
	s.withdrawals[w.ID] = &withdrawalRow{playerID: playerID, w: w}
	s.mu.Unlock()
	return w, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (arena.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return arena.Withdrawal{}, err
	}
	s.mu.RLock()
	row, ok := s.withdrawals[id]
	s.mu.RUnlock()
	if !ok {
		return arena.Withdrawal{}, arena.ErrWithdrawalNotFound
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	return row.w, nil
}

// ResolveWithdrawal approves (burns the locked funds) or rejects (returns them)
// a pending withdrawal.
func (s *Store) ResolveWithdrawal(ctx context.Context, id string, approve bool, at time.Time) (arena.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return arena.Withdrawal{}, err
	}
	s.mu.RLock()
	wrow, ok := s.withdrawals[id]
	s.mu.RUnlock()
	if !ok {
		return arena.Withdrawal{}, arena.ErrWithdrawalNotFound
	}
	prow, err := s.player(wrow.playerID)
	if err != nil {
		return arena.Withdrawal{}, err
	}
	prow.mu.Lock()
	defer prow.mu.Unlock()
	wrow.mu.Lock()
	defer wrow.mu.Unlock()
	if wrow.w.Status != arena.WithdrawalPending {
		return arena.Withdrawal{}, arena.ErrWithdrawalNotPending
	}
	if prow.p.LockedBalance < wrow.w.Amount {
		return arena.Withdrawal{}, arena.ErrInsufficientLockedBalance
	}
	prow.p.LockedBalance -= wrow.w.Amount
	if approve {
		s.appendTx(prow.p.ID, -wrow.w.Amount, arena.TxWithdrawal, "", at)
		wrow.w.Status = arena.WithdrawalApproved
	} else {
		prow.p.Balance += wrow.w.Amount
		wrow.w.Status = arena.WithdrawalRejected
	}
	processed := at
	wrow.w.ProcessedAt = &processed
	return wrow.w, nil
}

// SumWithdrawalsSince totals non-rejected requests made at or after since.
func (s *Store) SumWithdrawalsSince(ctx context.Context, playerID string, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.sumWithdrawals(playerID, since), nil
}

func (s *Store) sumWithdrawals(playerID string, since time.Time) int64 {
	s.mu.RLock()
	rows := make([]*withdrawalRow, 0, len(s.withdrawals))
	for _, row := range s.withdrawals {
		if row.playerID == playerID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	var total int64
	for _, row := range rows {
		row.mu.Lock()
		w := row.w
		row.mu.Unlock()
		if w.Status == arena.WithdrawalRejected || w.RequestedAt.Before(since) {
			continue
		}
		total += w.Amount
	}
	return total
}
