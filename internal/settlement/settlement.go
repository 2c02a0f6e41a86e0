// Package settlement closes a match exactly once: it pays the winner, books
// the rake and applies the rating change the farming guard allows.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rps-arena/internal/antifarm"
	"rps-arena/internal/arena"
	"rps-arena/internal/events"
	"rps-arena/internal/rating"
)

type Store interface {
	GetMatch(ctx context.Context, id string) (arena.Match, error)
	SettleMatch(ctx context.Context, s arena.Settlement) (arena.SettlementResult, error)
}

type Guard interface {
	Check(ctx context.Context, player, opponent string, m arena.Match) (antifarm.Verdict, error)
}

type Config struct {
	RakeRate    decimal.Decimal
	EloK        int
	MaxAttempts int
	Backoff     time.Duration
}

type Settler struct {
	store     Store
	guard     Guard
	publisher events.Publisher
	clock     arena.Clock
	cfg       Config
}

func New(st Store, guard Guard, pub events.Publisher, clock arena.Clock, cfg Config) *Settler {
	if cfg.RakeRate.IsZero() {
		cfg.RakeRate = DefaultRakeRate
	}
	if cfg.EloK <= 0 {
		cfg.EloK = rating.DefaultK
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 50 * time.Millisecond
	}
	if clock == nil {
		clock = arena.SystemClock{}
	}
	if pub == nil {
		pub = events.LogPublisher{}
	}
	return &Settler{store: st, guard: guard, publisher: pub, clock: clock, cfg: cfg}
}

// Settle closes matchID with winnerID as the winner. Settling an already
// finished match returns the recorded result with AlreadySettled set and
// moves no coins. Transient store failures are retried; on final failure the
// match is left active.
func (s *Settler) Settle(ctx context.Context, matchID, winnerID string) (arena.SettlementResult, error) {
	var (
		res arena.SettlementResult
		err error
	)
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		res, err = s.settleOnce(ctx, matchID, winnerID)
		if err == nil || permanent(err) || attempt == s.cfg.MaxAttempts {
			break
		}
		settleRetries.Inc()
		log.Warn().Err(err).Str("match_id", matchID).Int("attempt", attempt).Msg("settlement_retry")
		select {
		case <-ctx.Done():
			return arena.SettlementResult{}, ctx.Err()
		case <-time.After(s.cfg.Backoff * time.Duration(1<<(attempt-1))):
		}
	}
	if err != nil {
		settleFailures.Inc()
		return arena.SettlementResult{}, fmt.Errorf("settle match %s: %w", matchID, err)
	}
	if res.AlreadySettled {
		return res, nil
	}

	settledTotal.Inc()
	rakeTotal.Add(float64(res.Rake))
	log.Info().
		Str("match_id", matchID).
		Str("winner_id", winnerID).
		Int64("reward", res.Reward).
		Int64("rake", res.Rake).
		Bool("rating_applied", res.RatingApplied).
		Str("suppression_reason", res.SuppressionReason).
		Msg("match_settled")

	if err := s.publisher.Publish(ctx, events.NewMatchFinished(res, res.SuppressionReason)); err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("match_finished_publish_failed")
	}
	return res, nil
}

func (s *Settler) settleOnce(ctx context.Context, matchID, winnerID string) (arena.SettlementResult, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return arena.SettlementResult{}, err
	}
	if m.Status == arena.MatchFinished {
		return s.store.SettleMatch(ctx, arena.Settlement{MatchID: matchID, WinnerID: m.WinnerID})
	}
	if m.Status != arena.MatchActive {
		return arena.SettlementResult{}, arena.ErrMatchNotActive
	}
	loserID := m.Opponent(winnerID)
	if loserID == "" {
		return arena.SettlementResult{}, arena.ErrNotParticipant
	}

	_, rake, reward := Payout(m.Stake, s.cfg.RakeRate)
	st := arena.Settlement{
		MatchID:  matchID,
		WinnerID: winnerID,
		LoserID:  loserID,
		Reward:   reward,
		Rake:     rake,
		At:       s.clock.Now(),
	}

	verdict := antifarm.Verdict{Allowed: true}
	if s.guard != nil {
		verdict, err = s.guard.Check(ctx, winnerID, loserID, m)
		if err != nil {
			return arena.SettlementResult{}, fmt.Errorf("farming check: %w", err)
		}
	}
	if verdict.Allowed {
		st.Rate = rating.Func(s.cfg.EloK)
	}

	res, err := s.store.SettleMatch(ctx, st)
	if err != nil {
		return arena.SettlementResult{}, err
	}
	if !res.AlreadySettled && !verdict.Allowed {
		res.SuppressionReason = verdict.Reason
	}
	return res, nil
}

func permanent(err error) bool {
	for _, target := range []error{
		arena.ErrMatchNotFound,
		arena.ErrMatchNotActive,
		arena.ErrNotParticipant,
		arena.ErrPlayerNotFound,
		arena.ErrInvalidTransition,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
