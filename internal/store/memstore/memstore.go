// Package memstore is a process-local implementation of the arena store
// interfaces. Each player, match and withdrawal row carries its own mutex so
// unrelated rows never contend. Multi-row operations lock rows in a fixed
// order: match, then players by ascending id.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rps-arena/internal/arena"
	"rps-arena/internal/store"
)

type playerRow struct {
	mu sync.Mutex
	p  arena.Player
}

type matchRow struct {
	mu     sync.Mutex
	m      arena.Match
	result *arena.SettlementResult
}

// withdrawalRow is always locked after its player's row.
type withdrawalRow struct {
	playerID string

	mu sync.Mutex
	w  arena.Withdrawal
}

type Store struct {
	clock arena.Clock

	mu          sync.RWMutex
	players     map[string]*playerRow
	usernames   map[string]string
	matches     map[string]*matchRow
	matchOrder  []string
	withdrawals map[string]*withdrawalRow

	logMu   sync.Mutex
	txs     []arena.Transaction
	revenue []arena.PlatformRevenue
}

func New(clock arena.Clock) *Store {
	if clock == nil {
		clock = arena.SystemClock{}
	}
	return &Store{
		clock:       clock,
		players:     make(map[string]*playerRow),
		usernames:   make(map[string]string),
		matches:     make(map[string]*matchRow),
		withdrawals: make(map[string]*withdrawalRow),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

func (s *Store) player(id string) (*playerRow, error) {
	s.mu.RLock()
	row, ok := s.players[id]
	s.mu.RUnlock()
	if !ok {
		return nil, arena.ErrPlayerNotFound
	}
	return row, nil
}

func (s *Store) match(id string) (*matchRow, error) {
	s.mu.RLock()
	row, ok := s.matches[id]
	s.mu.RUnlock()
	if !ok {
		return nil, arena.ErrMatchNotFound
	}
	return row, nil
}

// lockPlayers locks the given rows in ascending id order and returns an
// unlock func. Duplicate ids are locked once.
func (s *Store) lockPlayers(ids ...string) (map[string]*playerRow, func(), error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	rows := make(map[string]*playerRow, len(sorted))
	locked := make([]*playerRow, 0, len(sorted))
	unlock := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
	for _, id := range sorted {
		if _, seen := rows[id]; seen {
			continue
		}
		row, err := s.player(id)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		row.mu.Lock()
		locked = append(locked, row)
		rows[id] = row
	}
	return rows, unlock, nil
}

func (s *Store) appendTx(playerID string, amount int64, kind arena.TxKind, matchID string, at time.Time) {
	s.logMu.Lock()
	s.txs = append(s.txs, arena.Transaction{
		ID:        store.NewID(),
		PlayerID:  playerID,
		Amount:    amount,
		Kind:      kind,
		MatchID:   matchID,
		CreatedAt: at,
	})
	s.logMu.Unlock()
}

func balanceOf(p arena.Player) arena.Balance {
	return arena.Balance{PlayerID: p.ID, Balance: p.Balance, Locked: p.LockedBalance}
}

func (s *Store) CreatePlayer(ctx context.Context, username string, initialBalance int64) (arena.Player, error) {
	if err := ctx.Err(); err != nil {
		return arena.Player{}, err
	}
	if initialBalance < 0 {
		return arena.Player{}, arena.ErrInvalidAmount
	}
	username = strings.TrimSpace(username)
	now := s.clock.Now()
	p := arena.Player{
		ID:        store.NewID(),
		Username:  username,
		Balance:   initialBalance,
		Rating:    arena.DefaultRating,
		CreatedAt: now,
	}
	s.mu.Lock()
	if username != "" {
		if _, taken := s.usernames[username]; taken {
			s.mu.Unlock()
			return arena.Player{}, store.ErrUsernameTaken
		}
		s.usernames[username] = p.ID
	}
	s.players[p.ID] = &playerRow{p: p}
	s.mu.Unlock()
	if initialBalance > 0 {
		s.appendTx(p.ID, initialBalance, arena.TxPurchase, "", now)
	}
	return p, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (arena.Player, error) {
	if err := ctx.Err(); err != nil {
		return arena.Player{}, err
	}
	row, err := s.player(id)
	if err != nil {
		return arena.Player{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	return row.p, nil
}

func (s *Store) SetFlagged(ctx context.Context, id string, flagged bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := s.player(id)
	if err != nil {
		return err
	}
	row.mu.Lock()
	row.p.Flagged = flagged
	row.mu.Unlock()
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, playerID string, limit, offset int) ([]arena.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]arena.Transaction, 0, limit)
	skipped := 0
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		tx := s.txs[i]
		if playerID != "" && tx.PlayerID != playerID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
