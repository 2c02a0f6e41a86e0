// Package withdrawal runs cash-out requests: funds are locked on request and
// either burned on approval or returned on rejection.
package withdrawal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
)

const (
	DefaultMinimum  = 100
	DefaultDailyCap = 5000
)

type Store interface {
	GetPlayer(ctx context.Context, id string) (arena.Player, error)
	// CreateWithdrawal checks limit and locks amount in one unit per player so
	// concurrent requests cannot overshoot the daily limit.
	CreateWithdrawal(ctx context.Context, playerID string, amount int64, at time.Time, limit arena.DailyCap) (arena.Withdrawal, error)
	ResolveWithdrawal(ctx context.Context, id string, approve bool, at time.Time) (arena.Withdrawal, error)
}

type Service struct {
	store    Store
	clock    arena.Clock
	minimum  int64
	dailyCap int64
}

func NewService(st Store, clock arena.Clock, minimum, dailyCap int64) *Service {
	if clock == nil {
		clock = arena.SystemClock{}
	}
	if minimum <= 0 {
		minimum = DefaultMinimum
	}
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	return &Service{store: st, clock: clock, minimum: minimum, dailyCap: dailyCap}
}

func (s *Service) Request(ctx context.Context, playerID string, amount int64) (arena.Withdrawal, error) {
	if amount <= 0 {
		return arena.Withdrawal{}, arena.ErrInvalidAmount
	}
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return arena.Withdrawal{}, err
	}
	if p.Flagged {
		return arena.Withdrawal{}, arena.ErrPlayerFlagged
	}
	if amount < s.minimum {
		return arena.Withdrawal{}, arena.ErrBelowMinimum
	}
	now := s.clock.Now()
	y, m, d := now.Date()
	if amount > s.dailyCap {
		return arena.Withdrawal{}, arena.ErrDailyCapExceeded
	}
	w, err := s.store.CreateWithdrawal(ctx, playerID, amount, now, arena.DailyCap{
		Since: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		Limit: s.dailyCap,
	})
	if err != nil {
		return arena.Withdrawal{}, err
	}
	log.Info().Str("withdrawal_id", w.ID).Str("player_id", playerID).Int64("amount", amount).Msg("withdrawal_requested")
	return w, nil
}

func (s *Service) Approve(ctx context.Context, id string) (arena.Withdrawal, error) {
	return s.resolve(ctx, id, true)
}

func (s *Service) Reject(ctx context.Context, id string) (arena.Withdrawal, error) {
	return s.resolve(ctx, id, false)
}

func (s *Service) resolve(ctx context.Context, id string, approve bool) (arena.Withdrawal, error) {
	w, err := s.store.ResolveWithdrawal(ctx, id, approve, s.clock.Now())
	if err != nil {
		return arena.Withdrawal{}, err
	}
	log.Info().Str("withdrawal_id", id).Str("player_id", w.PlayerID).Str("status", string(w.Status)).Msg("withdrawal_resolved")
	return w, nil
}
