// Package matchmaking pairs waiting players by exact stake and escrows both
// stakes when a pair forms.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
)

const DefaultQueueTimeout = 15 * time.Second

// Store creates a match and debits both stakes in one atomic unit.
type Store interface {
	CreateMatchWithEscrow(ctx context.Context, nm arena.NewMatch) (arena.Match, error)
}

// Ticket is the outcome of Enqueue: either a created match or a queued entry.
type Ticket struct {
	Matched bool         `json:"matched"`
	Match   *arena.Match `json:"match,omitempty"`
	Entry   *Entry       `json:"entry,omitempty"`
}

type Queue struct {
	store   Store
	pool    Pool
	clock   arena.Clock
	timeout time.Duration

	mu      sync.Mutex
	buckets map[int64]*sync.Mutex
}

func NewQueue(st Store, pool Pool, clock arena.Clock, timeout time.Duration) *Queue {
	if clock == nil {
		clock = arena.SystemClock{}
	}
	if timeout <= 0 {
		timeout = DefaultQueueTimeout
	}
	return &Queue{
		store:   st,
		pool:    pool,
		clock:   clock,
		timeout: timeout,
		buckets: map[int64]*sync.Mutex{},
	}
}

func (q *Queue) bucket(stake int64) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.buckets[stake]
	if b == nil {
		b = &sync.Mutex{}
		q.buckets[stake] = b
	}
	return b
}

// Enqueue pairs the player with the oldest live entry of the same stake, or
// parks the player when nobody is waiting. The enqueuing player takes seat 1.
func (q *Queue) Enqueue(ctx context.Context, playerID string, stake int64, ip string) (Ticket, error) {
	if stake <= 0 {
		return Ticket{}, arena.ErrInvalidAmount
	}
	b := q.bucket(stake)
	b.Lock()
	defer b.Unlock()

	now := q.clock.Now()
	if n, err := q.pool.Evict(ctx, stake, now.Add(-q.timeout)); err != nil {
		return Ticket{}, fmt.Errorf("evict stale entries: %w", err)
	} else if n > 0 {
		queueEvicted.Add(float64(n))
		log.Debug().Int64("stake", stake).Int("evicted", n).Msg("queue_evicted")
	}

	queued, err := q.pool.Contains(ctx, stake, playerID)
	if err != nil {
		return Ticket{}, err
	}
	if queued {
		return Ticket{}, arena.ErrAlreadyQueued
	}

	opponent, ok, err := q.pool.PopOldest(ctx, stake)
	if err != nil {
		return Ticket{}, fmt.Errorf("pop opponent: %w", err)
	}
	if ok && opponent.PlayerID == playerID {
		// Another instance parked this player between Contains and PopOldest.
		if err := q.pool.Add(ctx, opponent); err != nil {
			log.Error().Err(err).Str("player_id", playerID).Int64("stake", stake).Msg("queue_repark_failed")
			return Ticket{}, fmt.Errorf("re-park own entry: %w", err)
		}
		return Ticket{}, arena.ErrAlreadyQueued
	}
	if !ok {
		e := Entry{PlayerID: playerID, Stake: stake, IP: ip, EnqueuedAt: now}
		if err := q.pool.Add(ctx, e); err != nil {
			return Ticket{}, err
		}
		q.observeDepth(ctx, stake)
		queueJoined.Inc()
		log.Debug().Str("player_id", playerID).Int64("stake", stake).Msg("queue_joined")
		return Ticket{Entry: &e}, nil
	}

	m, err := q.store.CreateMatchWithEscrow(ctx, arena.NewMatch{
		Player1ID: playerID,
		Player2ID: opponent.PlayerID,
		Stake:     stake,
		Player1IP: ip,
		Player2IP: opponent.IP,
		CreatedAt: now,
	})
	q.observeDepth(ctx, stake)
	if err != nil {
		escrowFailures.Inc()
		log.Warn().Err(err).
			Str("player_id", playerID).
			Str("opponent_id", opponent.PlayerID).
			Int64("stake", stake).
			Msg("escrow_failed")
		var escrowErr *arena.EscrowError
		if errors.As(err, &escrowErr) {
			return Ticket{}, err
		}
		return Ticket{}, fmt.Errorf("%w: %w", arena.ErrEscrowFailed, err)
	}
	matchesCreated.Inc()
	log.Info().
		Str("match_id", m.ID).
		Str("player1_id", m.Player1ID).
		Str("player2_id", m.Player2ID).
		Int64("stake", stake).
		Msg("match_created")
	return Ticket{Matched: true, Match: &m}, nil
}

// Leave removes the player's waiting entry. It reports false when nothing was
// queued.
func (q *Queue) Leave(ctx context.Context, playerID string, stake int64) (bool, error) {
	if stake <= 0 {
		return false, arena.ErrInvalidAmount
	}
	b := q.bucket(stake)
	b.Lock()
	defer b.Unlock()
	removed, err := q.pool.Remove(ctx, stake, playerID)
	if err != nil {
		return false, err
	}
	q.observeDepth(ctx, stake)
	return removed, nil
}

// Depth returns the number of live entries waiting at stake.
func (q *Queue) Depth(ctx context.Context, stake int64) (int, error) {
	b := q.bucket(stake)
	b.Lock()
	defer b.Unlock()
	if _, err := q.pool.Evict(ctx, stake, q.clock.Now().Add(-q.timeout)); err != nil {
		return 0, err
	}
	return q.pool.Len(ctx, stake)
}

func (q *Queue) observeDepth(ctx context.Context, stake int64) {
	n, err := q.pool.Len(ctx, stake)
	if err != nil {
		return
	}
	queueDepth.WithLabelValues(fmt.Sprint(stake)).Set(float64(n))
}
