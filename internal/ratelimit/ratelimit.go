// Package ratelimit caps how many matches a player may start within a
// trailing window. The count comes from the store so every instance sees
// the same history.
package ratelimit

import (
	"context"
	"time"

	"rps-arena/internal/arena"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 10
)

type Store interface {
	CountMatchesSince(ctx context.Context, playerID string, since time.Time) (int, error)
}

type Guard struct {
	store  Store
	clock  arena.Clock
	window time.Duration
	limit  int
}

func New(s Store, clock arena.Clock, window time.Duration, limit int) *Guard {
	if clock == nil {
		clock = arena.SystemClock{}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Guard{store: s, clock: clock, window: window, limit: limit}
}

// Allow reports false once the player has started more than limit matches
// in the window.
func (g *Guard) Allow(ctx context.Context, playerID string) (bool, error) {
	n, err := g.store.CountMatchesSince(ctx, playerID, g.clock.Now().Add(-g.window))
	if err != nil {
		return false, err
	}
	return n <= g.limit, nil
}
