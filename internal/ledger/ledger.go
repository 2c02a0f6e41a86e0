// Package ledger is the wallet ledger: the only path through which a
// player's balance or locked balance changes outside of match escrow and
// settlement.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
)

// Store is the persistence the ledger needs. Each call must be atomic and
// serialized per player.
type Store interface {
	Credit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error)
	Debit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error)
	Lock(ctx context.Context, playerID string, amount int64) (arena.Balance, error)
	Unlock(ctx context.Context, playerID string, amount int64) (arena.Balance, error)
	GetPlayer(ctx context.Context, id string) (arena.Player, error)
}

type Ledger struct {
	store Store
}

func New(s Store) *Ledger {
	return &Ledger{store: s}
}

func (l *Ledger) Credit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	if err := validate(amount, kind); err != nil {
		return arena.Balance{}, err
	}
	bal, err := l.store.Credit(ctx, playerID, amount, kind)
	return l.done("credit", playerID, amount, kind, bal, err)
}

func (l *Ledger) Debit(ctx context.Context, playerID string, amount int64, kind arena.TxKind) (arena.Balance, error) {
	if err := validate(amount, kind); err != nil {
		return arena.Balance{}, err
	}
	bal, err := l.store.Debit(ctx, playerID, amount, kind)
	return l.done("debit", playerID, amount, kind, bal, err)
}

// Lock moves amount from balance into locked balance. No transaction is
// recorded because the total is unchanged.
func (l *Ledger) Lock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	if amount <= 0 {
		return arena.Balance{}, arena.ErrInvalidAmount
	}
	bal, err := l.store.Lock(ctx, playerID, amount)
	return l.done("lock", playerID, amount, "", bal, err)
}

func (l *Ledger) Unlock(ctx context.Context, playerID string, amount int64) (arena.Balance, error) {
	if amount <= 0 {
		return arena.Balance{}, arena.ErrInvalidAmount
	}
	bal, err := l.store.Unlock(ctx, playerID, amount)
	return l.done("unlock", playerID, amount, "", bal, err)
}

func (l *Ledger) Balance(ctx context.Context, playerID string) (arena.Balance, error) {
	p, err := l.store.GetPlayer(ctx, playerID)
	if err != nil {
		return arena.Balance{}, err
	}
	return arena.Balance{PlayerID: p.ID, Balance: p.Balance, Locked: p.LockedBalance}, nil
}

func validate(amount int64, kind arena.TxKind) error {
	if amount <= 0 {
		return arena.ErrInvalidAmount
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown transaction kind %q", kind)
	}
	return nil
}

func (l *Ledger) done(op, playerID string, amount int64, kind arena.TxKind, bal arena.Balance, err error) (arena.Balance, error) {
	if err != nil {
		ledgerOpErrors.WithLabelValues(op).Inc()
		return arena.Balance{}, fmt.Errorf("ledger %s %s: %w", op, playerID, err)
	}
	ledgerOps.WithLabelValues(op).Inc()
	log.Debug().
		Str("op", op).
		Str("player_id", playerID).
		Int64("amount", amount).
		Str("kind", string(kind)).
		Int64("balance", bal.Balance).
		Int64("locked_balance", bal.Locked).
		Msg("ledger_op")
	return bal, nil
}
