// Package round runs the per-match round state machine: rounds open lazily
// on the first move, resolve once both seats have moved, and hand the match
// to settlement when a player reaches the win threshold.
package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
)

const (
	DefaultRoundTimeout = 2 * time.Second
	DefaultWinThreshold = 2
)

type Store interface {
	GetMatch(ctx context.Context, id string) (arena.Match, error)
	RecordRoundWin(ctx context.Context, matchID string, slot arena.Slot) (arena.Match, error)
}

type Settler interface {
	Settle(ctx context.Context, matchID, winnerID string) (arena.SettlementResult, error)
}

type RateGuard interface {
	Allow(ctx context.Context, playerID string) (bool, error)
}

type Config struct {
	RoundTimeout time.Duration
	WinThreshold int
}

// Moves is revealed only once a round has resolved.
type Moves struct {
	Player1 arena.Move `json:"player1"`
	Player2 arena.Move `json:"player2"`
}

type Result struct {
	Match      arena.Match             `json:"match"`
	Outcome    arena.Outcome           `json:"outcome"`
	Moves      *Moves                  `json:"moves,omitempty"`
	Finished   bool                    `json:"finished"`
	Settlement *arena.SettlementResult `json:"settlement,omitempty"`
}

type roundState struct {
	startedAt time.Time
	deadline  time.Time
	moves     [2]arena.Move
	present   [2]bool
}

func (r *roundState) set(slot arena.Slot, mv arena.Move) {
	r.moves[slot-1] = mv
	r.present[slot-1] = true
}

func (r *roundState) complete() bool {
	return r.present[0] && r.present[1]
}

type matchRuntime struct {
	mu    sync.Mutex
	round *roundState
	// pendingWinner holds a decided final round whose settlement has not
	// committed yet.
	pendingWinner string
}

type Machine struct {
	store   Store
	settler Settler
	guard   RateGuard
	clock   arena.Clock
	cfg     Config

	mu      sync.Mutex
	matches map[string]*matchRuntime
}

func NewMachine(st Store, settler Settler, guard RateGuard, clock arena.Clock, cfg Config) *Machine {
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = DefaultRoundTimeout
	}
	if cfg.WinThreshold <= 0 {
		cfg.WinThreshold = DefaultWinThreshold
	}
	if clock == nil {
		clock = arena.SystemClock{}
	}
	return &Machine{
		store:   st,
		settler: settler,
		guard:   guard,
		clock:   clock,
		cfg:     cfg,
		matches: map[string]*matchRuntime{},
	}
}

func (m *Machine) runtime(matchID string) *matchRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt := m.matches[matchID]
	if rt == nil {
		rt = &matchRuntime{}
		m.matches[matchID] = rt
	}
	return rt
}

func (m *Machine) forget(matchID string) {
	m.mu.Lock()
	delete(m.matches, matchID)
	m.mu.Unlock()
}

// SubmitMove records playerID's move in the open round of matchID, opening
// one if needed, and resolves the round when both seats have moved.
func (m *Machine) SubmitMove(ctx context.Context, matchID, playerID, rawMove string) (Result, error) {
	rt := m.runtime(matchID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	match, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return Result{}, err
	}
	if _, ok := match.Slot(playerID); !ok {
		return Result{}, arena.ErrNotParticipant
	}
	if rt.pendingWinner != "" {
		return m.settlePendingLocked(ctx, rt, matchID)
	}
	if match.Status != arena.MatchActive {
		m.forget(matchID)
		return Result{}, arena.ErrMatchNotActive
	}
	mv, err := arena.ParseMove(rawMove)
	if err != nil {
		return Result{}, err
	}
	if m.guard != nil {
		ok, err := m.guard.Allow(ctx, playerID)
		if err != nil {
			return Result{}, fmt.Errorf("rate guard: %w", err)
		}
		if !ok {
			roundRejected.WithLabelValues("rate_limited").Inc()
			return Result{}, arena.ErrRateLimited
		}
	}

	slot, _ := match.Slot(playerID)
	now := m.clock.Now()
	if rt.round != nil && now.After(rt.round.deadline) {
		rt.round = nil
		roundsTimedOut.Inc()
		log.Info().Str("match_id", matchID).Str("player_id", playerID).Msg("round_timeout")
		return Result{}, arena.ErrRoundTimeout
	}
	if rt.round == nil {
		rt.round = &roundState{startedAt: now, deadline: now.Add(m.cfg.RoundTimeout)}
	}
	rt.round.set(slot, mv)
	if !rt.round.complete() {
		return Result{Match: match, Outcome: arena.OutcomePending}, nil
	}
	return m.resolveLocked(ctx, rt, match)
}

func (m *Machine) resolveLocked(ctx context.Context, rt *matchRuntime, match arena.Match) (Result, error) {
	r := rt.round
	moves := &Moves{Player1: r.moves[0], Player2: r.moves[1]}
	outcome := arena.DecideRound(moves.Player1, moves.Player2)
	roundsResolved.WithLabelValues(string(outcome)).Inc()

	winnerSlot, decisive := outcome.Winner()
	if !decisive {
		rt.round = nil
		return Result{Match: match, Outcome: outcome, Moves: moves}, nil
	}

	if match.Score(winnerSlot)+1 >= m.cfg.WinThreshold {
		rt.round = nil
		rt.pendingWinner = match.PlayerAt(winnerSlot)
		res, err := m.settlePendingLocked(ctx, rt, match.ID)
		if err != nil {
			return Result{}, err
		}
		res.Outcome = outcome
		res.Moves = moves
		return res, nil
	}

	updated, err := m.store.RecordRoundWin(ctx, match.ID, winnerSlot)
	if err != nil {
		return Result{}, fmt.Errorf("record round win: %w", err)
	}
	rt.round = nil
	return Result{Match: updated, Outcome: outcome, Moves: moves}, nil
}

func (m *Machine) settlePendingLocked(ctx context.Context, rt *matchRuntime, matchID string) (Result, error) {
	winnerID := rt.pendingWinner
	res, err := m.settler.Settle(ctx, matchID, winnerID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Str("winner_id", winnerID).Msg("settlement_pending")
		return Result{}, err
	}
	rt.pendingWinner = ""
	m.forget(matchID)

	outcome := arena.OutcomePlayer1
	if slot, _ := res.Match.Slot(winnerID); slot == arena.SlotPlayer2 {
		outcome = arena.OutcomePlayer2
	}
	return Result{
		Match:      res.Match,
		Outcome:    outcome,
		Finished:   true,
		Settlement: &res,
	}, nil
}

// RetrySettlement re-runs a settlement that failed after the deciding round.
// It reports ErrMatchNotActive when nothing is pending for the match.
func (m *Machine) RetrySettlement(ctx context.Context, matchID string) (Result, error) {
	rt := m.runtime(matchID)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.pendingWinner == "" {
		if _, err := m.store.GetMatch(ctx, matchID); err != nil {
			m.forget(matchID)
			return Result{}, err
		}
		return Result{}, arena.ErrMatchNotActive
	}
	return m.settlePendingLocked(ctx, rt, matchID)
}

// Snapshot describes the live round without revealing submitted moves.
type Snapshot struct {
	MatchID           string    `json:"match_id"`
	StartedAt         time.Time `json:"started_at"`
	Deadline          time.Time `json:"deadline"`
	Expired           bool      `json:"expired"`
	Player1Moved      bool      `json:"player1_moved"`
	Player2Moved      bool      `json:"player2_moved"`
	SettlementPending bool      `json:"settlement_pending"`
}

func (m *Machine) ActiveRound(matchID string) (Snapshot, bool) {
	m.mu.Lock()
	rt := m.matches[matchID]
	m.mu.Unlock()
	if rt == nil {
		return Snapshot{}, false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.round == nil {
		if rt.pendingWinner != "" {
			return Snapshot{MatchID: matchID, SettlementPending: true}, true
		}
		return Snapshot{}, false
	}
	return Snapshot{
		MatchID:           matchID,
		StartedAt:         rt.round.startedAt,
		Deadline:          rt.round.deadline,
		Expired:           m.clock.Now().After(rt.round.deadline),
		Player1Moved:      rt.round.present[0],
		Player2Moved:      rt.round.present[1],
		SettlementPending: rt.pendingWinner != "",
	}, true
}
