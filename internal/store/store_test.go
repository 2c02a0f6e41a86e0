package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rps-arena/internal/arena"
	"rps-arena/internal/rating"
	"rps-arena/internal/store"
	"rps-arena/internal/testutil"
)

func TestCreatePlayerRejectsDuplicateUsername(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	testutil.MustCreatePlayer(t, st, "alice", 100)
	if _, err := st.CreatePlayer(ctx, "alice", 0); !errors.Is(err, store.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
}

func TestLedgerDebitInsufficientLeavesBalance(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	p := testutil.MustCreatePlayer(t, st, "bob", 50)

	if _, err := st.Debit(ctx, p.ID, 100, arena.TxStake); !errors.Is(err, arena.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	got, err := st.GetPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Balance != 50 {
		t.Fatalf("balance = %d, want 50", got.Balance)
	}
	if _, err := st.GetPlayer(ctx, "missing"); !errors.Is(err, arena.ErrPlayerNotFound) {
		t.Fatalf("expected player not found, got %v", err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	p := testutil.MustCreatePlayer(t, st, "carol", 100)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Debit(ctx, p.ID, 30, arena.TxStake); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 3 {
		t.Fatalf("successful debits = %d, want 3", ok)
	}
	got, _ := st.GetPlayer(ctx, p.ID)
	if got.Balance != 10 {
		t.Fatalf("balance = %d, want 10", got.Balance)
	}
}

func TestEscrowAndSettleMatch(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "p1", 1000)
	b := testutil.MustCreatePlayer(t, st, "p2", 1000)

	m, err := st.CreateMatchWithEscrow(ctx, arena.NewMatch{
		Player1ID: a.ID, Player2ID: b.ID, Stake: 100, Player1IP: "10.0.0.1", Player2IP: "10.0.0.2",
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if m.Status != arena.MatchActive {
		t.Fatalf("status = %s, want active", m.Status)
	}
	if _, err := st.RecordRoundWin(ctx, m.ID, arena.SlotPlayer1); err != nil {
		t.Fatalf("record round win: %v", err)
	}

	settle := arena.Settlement{
		MatchID: m.ID, WinnerID: a.ID, LoserID: b.ID,
		Reward: 180, Rake: 20, Rate: rating.Func(32), At: time.Now(),
	}
	res, err := st.SettleMatch(ctx, settle)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Match.Player1Score != 2 || res.Match.WinnerID != a.ID || res.Match.FinishedAt == nil {
		t.Fatalf("unexpected match after settle: %+v", res.Match)
	}
	if res.WinnerBalance != 1080 || res.WinnerRating != 1016 || res.LoserRating != 984 {
		t.Fatalf("unexpected result: %+v", res)
	}

	again, err := st.SettleMatch(ctx, settle)
	if err != nil {
		t.Fatalf("settle again: %v", err)
	}
	if !again.AlreadySettled || again.Rake != 20 || again.WinnerBalance != 1080 || !again.RatingApplied {
		t.Fatalf("unexpected replay: %+v", again)
	}

	stats, err := st.Stats(ctx, time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRake != 20 || stats.TotalMatches != 1 || stats.TotalPlayers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	txs, err := st.ListTransactions(ctx, a.ID, 10, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var sum int64
	kinds := map[arena.TxKind]int{}
	for _, tx := range txs {
		kinds[tx.Kind]++
		if tx.Kind != arena.TxCommission {
			sum += tx.Amount
		}
	}
	if kinds[arena.TxWin] != 1 || kinds[arena.TxCommission] != 1 || kinds[arena.TxStake] != 1 {
		t.Fatalf("unexpected transaction kinds: %v", kinds)
	}
	if sum != 1080 {
		t.Fatalf("non-audit transaction sum = %d, want 1080", sum)
	}
}

func TestEscrowFailureRollsBack(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "rich", 1000)
	b := testutil.MustCreatePlayer(t, st, "poor", 10)

	_, err := st.CreateMatchWithEscrow(ctx, arena.NewMatch{Player1ID: a.ID, Player2ID: b.ID, Stake: 100})
	if !errors.Is(err, arena.ErrEscrowFailed) || !errors.Is(err, arena.ErrInsufficientBalance) {
		t.Fatalf("expected escrow failure, got %v", err)
	}
	got, _ := st.GetPlayer(ctx, a.ID)
	if got.Balance != 1000 {
		t.Fatalf("rich balance = %d, want 1000", got.Balance)
	}
	n, err := st.CountMatchesSince(ctx, a.ID, time.Time{})
	if err != nil || n != 0 {
		t.Fatalf("count = %d err = %v, want 0", n, err)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	p := testutil.MustCreatePlayer(t, st, "dave", 1000)
	now := time.Now()

	w, err := st.CreateWithdrawal(ctx, p.ID, 400, now, arena.DailyCap{})
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}
	got, _ := st.GetPlayer(ctx, p.ID)
	if got.Balance != 600 || got.LockedBalance != 400 {
		t.Fatalf("unexpected balances after request: %+v", got)
	}
	if _, err := st.ResolveWithdrawal(ctx, w.ID, false, now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ = st.GetPlayer(ctx, p.ID)
	if got.Balance != 1000 || got.LockedBalance != 0 {
		t.Fatalf("unexpected balances after reject: %+v", got)
	}
	sum, err := st.SumWithdrawalsSince(ctx, p.ID, now.Add(-time.Hour))
	if err != nil || sum != 0 {
		t.Fatalf("sum = %d err = %v, want 0", sum, err)
	}
}

func TestConcurrentWithdrawalsRespectDailyCap(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	p := testutil.MustCreatePlayer(t, st, "erin", 20000)
	now := time.Now()
	limit := arena.DailyCap{Since: now.Add(-time.Hour), Limit: 5000}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.CreateWithdrawal(ctx, p.ID, 1000, now, limit)
			if err != nil && !errors.Is(err, arena.ErrDailyCapExceeded) {
				t.Errorf("create withdrawal: %v", err)
			}
		}()
	}
	wg.Wait()
	got, _ := st.GetPlayer(ctx, p.ID)
	if got.LockedBalance != 5000 || got.Balance != 15000 {
		t.Fatalf("unexpected balances: %+v", got)
	}
}
