// Package antifarm decides whether a finished match may move ratings.
// Payouts are never affected.
package antifarm

import (
	"context"
	"fmt"

	"rps-arena/internal/arena"
)

const (
	ReasonSameIPFarming = "same_ip_farming"
	ReasonRepeatPairing = "repeat_pairing"

	DefaultLookback  = 5
	DefaultThreshold = 3
)

type Store interface {
	// PairMatches returns up to limit of the most recent matches played
	// between a and b in either seat order, skipping excludeMatchID.
	PairMatches(ctx context.Context, a, b string, limit int, excludeMatchID string) ([]arena.Match, error)
}

type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	// Meetings is how many of the pair's most recent matches against each
	// other were found, capped at the lookback.
	Meetings int `json:"meetings"`
}

type Guard struct {
	store     Store
	lookback  int
	threshold int
}

func New(s Store, lookback, threshold int) *Guard {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Guard{store: s, lookback: lookback, threshold: threshold}
}

// Check counts the pair's most recent matches against each other, excluding
// m itself, and suppresses the rating change once they met threshold times.
// Matches either player had against someone else do not dilute the count.
func (g *Guard) Check(ctx context.Context, player, opponent string, m arena.Match) (Verdict, error) {
	met, err := g.store.PairMatches(ctx, player, opponent, g.lookback, m.ID)
	if err != nil {
		return Verdict{}, fmt.Errorf("pair matches %s/%s: %w", player, opponent, err)
	}
	n := len(met)

	v := Verdict{Allowed: true, Meetings: n}
	if n < g.threshold {
		return v, nil
	}
	v.Allowed = false
	if m.Player1IP != "" && m.Player1IP == m.Player2IP {
		v.Reason = ReasonSameIPFarming
	} else {
		v.Reason = ReasonRepeatPairing
	}
	farmSuppressed.WithLabelValues(v.Reason).Inc()
	return v, nil
}
