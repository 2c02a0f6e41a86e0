package matchmaking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rps-arena/internal/arena"
	"rps-arena/internal/store/memstore"
	"rps-arena/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newQueue(t *testing.T) (*Queue, *memstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	st := memstore.New(clock)
	return NewQueue(st, NewMemoryPool(), clock, 0), st, clock
}

func TestEnqueuePairsOldestAndEscrows(t *testing.T) {
	q, st, _ := newQueue(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)
	b := testutil.MustCreatePlayer(t, st, "b", 500)

	first, err := q.Enqueue(ctx, a.ID, 100, "1.1.1.1")
	if err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if first.Matched || first.Entry == nil {
		t.Fatalf("expected queued ticket, got %+v", first)
	}
	second, err := q.Enqueue(ctx, b.ID, 100, "2.2.2.2")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if !second.Matched || second.Match == nil {
		t.Fatalf("expected match, got %+v", second)
	}
	m := second.Match
	if m.Player1ID != b.ID || m.Player2ID != a.ID || m.Status != arena.MatchActive {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.Player1IP != "2.2.2.2" || m.Player2IP != "1.1.1.1" {
		t.Fatalf("unexpected ips: %+v", m)
	}
	for _, id := range []string{a.ID, b.ID} {
		p, _ := st.GetPlayer(ctx, id)
		if p.Balance != 400 {
			t.Fatalf("balance of %s = %d, want 400", id, p.Balance)
		}
	}
	if depth, _ := q.Depth(ctx, 100); depth != 0 {
		t.Fatalf("depth = %d, want 0", depth)
	}
}

func TestEnqueueDifferentStakesNeverPair(t *testing.T) {
	q, st, _ := newQueue(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)
	b := testutil.MustCreatePlayer(t, st, "b", 500)

	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	tk, err := q.Enqueue(ctx, b.ID, 50, "")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if tk.Matched {
		t.Fatal("stakes 100 and 50 must not pair")
	}
}

func TestEnqueueEvictsStaleEntries(t *testing.T) {
	q, st, clock := newQueue(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)
	b := testutil.MustCreatePlayer(t, st, "b", 500)

	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	clock.Advance(16 * time.Second)
	tk, err := q.Enqueue(ctx, b.ID, 100, "")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if tk.Matched {
		t.Fatal("stale entry must be evicted, not paired")
	}
	p, _ := st.GetPlayer(ctx, a.ID)
	if p.Balance != 500 {
		t.Fatalf("evicted player balance = %d, want 500", p.Balance)
	}
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	q, st, _ := newQueue(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)

	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(ctx, a.ID, 100, ""); !errors.Is(err, arena.ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}
	removed, err := q.Leave(ctx, a.ID, 100)
	if err != nil || !removed {
		t.Fatalf("leave: removed=%v err=%v", removed, err)
	}
	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("re-enqueue after leave: %v", err)
	}
}

func TestEnqueueInvalidStake(t *testing.T) {
	q, _, _ := newQueue(t)
	for _, stake := range []int64{0, -100} {
		if _, err := q.Enqueue(context.Background(), "p", stake, ""); !errors.Is(err, arena.ErrInvalidAmount) {
			t.Fatalf("stake %d: expected invalid amount, got %v", stake, err)
		}
	}
}

func TestEscrowFailureDropsPoppedEntry(t *testing.T) {
	q, st, _ := newQueue(t)
	ctx := context.Background()
	poor := testutil.MustCreatePlayer(t, st, "poor", 50)
	rich := testutil.MustCreatePlayer(t, st, "rich", 500)

	if _, err := q.Enqueue(ctx, poor.ID, 100, ""); err != nil {
		t.Fatalf("enqueue poor: %v", err)
	}
	_, err := q.Enqueue(ctx, rich.ID, 100, "")
	if !errors.Is(err, arena.ErrEscrowFailed) || !errors.Is(err, arena.ErrInsufficientBalance) {
		t.Fatalf("expected escrow failure, got %v", err)
	}
	for id, want := range map[string]int64{poor.ID: 50, rich.ID: 500} {
		p, _ := st.GetPlayer(ctx, id)
		if p.Balance != want {
			t.Fatalf("balance of %s = %d, want %d", id, p.Balance, want)
		}
	}
	if depth, _ := q.Depth(ctx, 100); depth != 0 {
		t.Fatalf("popped entry must not be re-inserted, depth = %d", depth)
	}
}

func TestConcurrentEnqueueNeverDoubleBooks(t *testing.T) {
	q, st, _ := newQueue(t)
	ctx := context.Background()
	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i] = testutil.MustCreatePlayer(t, st, "", 100).ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		matched int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			tk, err := q.Enqueue(ctx, id, 100, "")
			if err != nil {
				t.Errorf("enqueue %s: %v", id, err)
				return
			}
			if tk.Matched {
				mu.Lock()
				matched++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	if matched != n/2 {
		t.Fatalf("matches = %d, want %d", matched, n/2)
	}
	for _, id := range ids {
		p, _ := st.GetPlayer(ctx, id)
		if p.Balance != 0 {
			t.Fatalf("player %s balance = %d, want 0", id, p.Balance)
		}
	}
}

func TestEntryExpiresExactlyAtTimeout(t *testing.T) {
	q, st, clock := newQueue(t)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)
	b := testutil.MustCreatePlayer(t, st, "b", 500)

	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	clock.Advance(15*time.Second - time.Millisecond)
	if depth, _ := q.Depth(ctx, 100); depth != 1 {
		t.Fatalf("depth just under timeout = %d, want 1", depth)
	}
	clock.Advance(time.Millisecond)
	tk, err := q.Enqueue(ctx, b.ID, 100, "")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if tk.Matched {
		t.Fatal("entry aged exactly the timeout must be evicted")
	}
}

// racyPool hides the player from Contains, as when another instance parks
// them concurrently, and can fail Add.
type racyPool struct {
	*MemoryPool
	failAdd bool
}

func (p *racyPool) Contains(context.Context, int64, string) (bool, error) {
	return false, nil
}

func (p *racyPool) Add(ctx context.Context, e Entry) error {
	if p.failAdd {
		return errors.New("pool unavailable")
	}
	return p.MemoryPool.Add(ctx, e)
}

func TestEnqueueReparksOwnEntry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	st := memstore.New(clock)
	pool := &racyPool{MemoryPool: NewMemoryPool()}
	q := NewQueue(st, pool, clock, 0)
	ctx := context.Background()
	a := testutil.MustCreatePlayer(t, st, "a", 500)

	if _, err := q.Enqueue(ctx, a.ID, 100, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(ctx, a.ID, 100, ""); !errors.Is(err, arena.ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}
	if n, _ := pool.Len(ctx, 100); n != 1 {
		t.Fatalf("len = %d, want own entry back in pool", n)
	}

	pool.failAdd = true
	_, err := q.Enqueue(ctx, a.ID, 100, "")
	if err == nil || errors.Is(err, arena.ErrAlreadyQueued) {
		t.Fatalf("expected re-park failure to surface, got %v", err)
	}
}
