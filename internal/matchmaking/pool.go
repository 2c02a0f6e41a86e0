package matchmaking

import (
	"context"
	"time"
)

// Entry is one waiting player in a stake bucket.
type Entry struct {
	PlayerID   string    `json:"player_id"`
	Stake      int64     `json:"stake"`
	IP         string    `json:"ip,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Pool holds the waiting entries for every stake bucket. Implementations keep
// each bucket ordered by EnqueuedAt. The Queue serializes calls per bucket.
type Pool interface {
	// Evict drops entries enqueued at or before the cutoff and returns how
	// many were removed. An entry lives while its age is below the timeout.
	Evict(ctx context.Context, stake int64, before time.Time) (int, error)
	Contains(ctx context.Context, stake int64, playerID string) (bool, error)
	// PopOldest removes and returns the oldest entry, if any.
	PopOldest(ctx context.Context, stake int64) (Entry, bool, error)
	// Add appends e and fails with arena.ErrAlreadyQueued when the player
	// already waits in the bucket.
	Add(ctx context.Context, e Entry) error
	Remove(ctx context.Context, stake int64, playerID string) (bool, error)
	Len(ctx context.Context, stake int64) (int, error)
}
