package memstore

import (
	"context"
	"time"

	"rps-arena/internal/arena"
	"rps-arena/internal/store"
)

// CreateMatchWithEscrow debits both stakes and inserts an active match as one
// unit. Either both debits land together with the match or nothing changes.
func (s *Store) CreateMatchWithEscrow(ctx context.Context, nm arena.NewMatch) (arena.Match, error) {
	if err := ctx.Err(); err != nil {
		return arena.Match{}, err
	}
	rows, unlock, err := s.lockPlayers(nm.Player1ID, nm.Player2ID)
	if err != nil {
		return arena.Match{}, err
	}
	defer unlock()

	for _, id := range []string{nm.Player1ID, nm.Player2ID} {
		if rows[id].p.Balance < nm.Stake {
			return arena.Match{}, &arena.EscrowError{PlayerID: id, Cause: arena.ErrInsufficientBalance}
		}
	}

	createdAt := nm.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	m := arena.Match{
		ID:        store.NewID(),
		Player1ID: nm.Player1ID,
		Player2ID: nm.Player2ID,
		Stake:     nm.Stake,
		Status:    arena.MatchActive,
		Player1IP: nm.Player1IP,
		Player2IP: nm.Player2IP,
		CreatedAt: createdAt,
	}
	for _, id := range []string{nm.Player1ID, nm.Player2ID} {
		rows[id].p.Balance -= nm.Stake
		s.appendTx(id, -nm.Stake, arena.TxStake, m.ID, createdAt)
	}

	s.mu.Lock()
	s.matches[m.ID] = &matchRow{m: m}
	s.matchOrder = append(s.matchOrder, m.ID)
	s.mu.Unlock()
	return m, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (arena.Match, error) {
	if err := ctx.Err(); err != nil {
		return arena.Match{}, err
	}
	row, err := s.match(id)
	if err != nil {
		return arena.Match{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	return row.m, nil
}

func (s *Store) RecordRoundWin(ctx context.Context, matchID string, slot arena.Slot) (arena.Match, error) {
	if err := ctx.Err(); err != nil {
		return arena.Match{}, err
	}
	row, err := s.match(matchID)
	if err != nil {
		return arena.Match{}, err
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if row.m.Status != arena.MatchActive {
		return arena.Match{}, arena.ErrMatchNotActive
	}
	if slot == arena.SlotPlayer2 {
		row.m.Player2Score++
	} else {
		row.m.Player1Score++
	}
	return row.m, nil
}

// SettleMatch applies the final round win, closes the match and moves the
// pot as one unit. A finished match returns its recorded result.
func (s *Store) SettleMatch(ctx context.Context, st arena.Settlement) (arena.SettlementResult, error) {
	if err := ctx.Err(); err != nil {
		return arena.SettlementResult{}, err
	}
	mrow, err := s.match(st.MatchID)
	if err != nil {
		return arena.SettlementResult{}, err
	}
	mrow.mu.Lock()
	defer mrow.mu.Unlock()

	if mrow.m.Status == arena.MatchFinished {
		if mrow.result == nil {
			return arena.SettlementResult{}, arena.ErrInvalidTransition
		}
		res := *mrow.result
		res.Match = mrow.m
		res.AlreadySettled = true
		return res, nil
	}
	if !mrow.m.Status.CanTransition(arena.MatchFinished) {
		return arena.SettlementResult{}, arena.ErrInvalidTransition
	}
	if mrow.m.Status != arena.MatchActive {
		return arena.SettlementResult{}, arena.ErrMatchNotActive
	}
	winnerSlot, ok := mrow.m.Slot(st.WinnerID)
	if !ok {
		return arena.SettlementResult{}, arena.ErrNotParticipant
	}
	loserID := mrow.m.Opponent(st.WinnerID)

	rows, unlock, err := s.lockPlayers(st.WinnerID, loserID)
	if err != nil {
		return arena.SettlementResult{}, err
	}
	defer unlock()

	at := st.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	m := mrow.m
	if winnerSlot == arena.SlotPlayer2 {
		m.Player2Score++
	} else {
		m.Player1Score++
	}
	m.Status = arena.MatchFinished
	m.WinnerID = st.WinnerID
	finished := at
	m.FinishedAt = &finished

	winner := rows[st.WinnerID]
	loser := rows[loserID]
	winner.p.Balance += st.Reward
	s.appendTx(st.WinnerID, st.Reward, arena.TxWin, m.ID, at)
	s.appendTx(st.WinnerID, -st.Rake, arena.TxCommission, m.ID, at)

	s.logMu.Lock()
	s.revenue = append(s.revenue, arena.PlatformRevenue{
		ID:        store.NewID(),
		Amount:    st.Rake,
		MatchID:   m.ID,
		CreatedAt: at,
	})
	s.logMu.Unlock()

	res := arena.SettlementResult{
		Reward:        st.Reward,
		Rake:          st.Rake,
		WinnerBalance: winner.p.Balance,
	}
	if st.Rate != nil {
		winner.p.Rating, loser.p.Rating = st.Rate(winner.p.Rating, loser.p.Rating)
		res.RatingApplied = true
	}
	res.WinnerRating = winner.p.Rating
	res.LoserRating = loser.p.Rating

	mrow.m = m
	recorded := res
	mrow.result = &recorded
	res.Match = m
	return res, nil
}

// RecentMatches returns up to limit of the player's matches, newest first,
// skipping excludeMatchID.
func (s *Store) RecentMatches(ctx context.Context, playerID string, limit int, excludeMatchID string) ([]arena.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	order := append([]string(nil), s.matchOrder...)
	s.mu.RUnlock()

	out := make([]arena.Match, 0, limit)
	for i := len(order) - 1; i >= 0 && len(out) < limit; i-- {
		if order[i] == excludeMatchID {
			continue
		}
		row, err := s.match(order[i])
		if err != nil {
			continue
		}
		row.mu.Lock()
		m := row.m
		row.mu.Unlock()
		if m.Player1ID == playerID || m.Player2ID == playerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) PairMatches(ctx context.Context, a, b string, limit int, excludeMatchID string) ([]arena.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	order := append([]string(nil), s.matchOrder...)
	s.mu.RUnlock()

	out := make([]arena.Match, 0, limit)
	for i := len(order) - 1; i >= 0 && len(out) < limit; i-- {
		if order[i] == excludeMatchID {
			continue
		}
		row, err := s.match(order[i])
		if err != nil {
			continue
		}
		row.mu.Lock()
		m := row.m
		row.mu.Unlock()
		if (m.Player1ID == a && m.Player2ID == b) || (m.Player1ID == b && m.Player2ID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CountMatchesSince(ctx context.Context, playerID string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	order := append([]string(nil), s.matchOrder...)
	s.mu.RUnlock()

	n := 0
	for i := len(order) - 1; i >= 0; i-- {
		row, err := s.match(order[i])
		if err != nil {
			continue
		}
		row.mu.Lock()
		m := row.m
		row.mu.Unlock()
		if m.CreatedAt.Before(since) {
			continue
		}
		if m.Player1ID == playerID || m.Player2ID == playerID {
			n++
		}
	}
	return n, nil
}
