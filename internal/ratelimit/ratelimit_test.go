package ratelimit

import (
	"context"
	"testing"
	"time"

	"rps-arena/internal/arena"
)

type countStore struct {
	starts []time.Time
}

func (c *countStore) CountMatchesSince(_ context.Context, _ string, since time.Time) (int, error) {
	n := 0
	for _, at := range c.starts {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func TestAllowOverLimitWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := &countStore{}
	for i := 0; i < 10; i++ {
		st.starts = append(st.starts, now.Add(-time.Duration(i)*time.Second))
	}
	g := New(st, arena.ClockFunc(func() time.Time { return now }), 0, 0)

	ok, err := g.Allow(context.Background(), "p")
	if err != nil || !ok {
		t.Fatalf("10 matches should be allowed, ok=%v err=%v", ok, err)
	}
	st.starts = append(st.starts, now)
	ok, err = g.Allow(context.Background(), "p")
	if err != nil || ok {
		t.Fatalf("11 matches should be limited, ok=%v err=%v", ok, err)
	}
}

func TestOldMatchesFallOutOfWindow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := &countStore{}
	for i := 0; i < 20; i++ {
		st.starts = append(st.starts, now.Add(-2*time.Minute))
	}
	g := New(st, arena.ClockFunc(func() time.Time { return now }), time.Minute, 10)
	ok, err := g.Allow(context.Background(), "p")
	if err != nil || !ok {
		t.Fatalf("stale matches should not count, ok=%v err=%v", ok, err)
	}
}
