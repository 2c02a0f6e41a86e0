// Package events carries the "match finished" fact out of the engine.
package events

import (
	"time"

	"github.com/google/uuid"

	"rps-arena/internal/arena"
)

const TopicMatchFinished = "arena.match.finished"

type MatchFinished struct {
	EventID           string    `json:"event_id"`
	MatchID           string    `json:"match_id"`
	WinnerID          string    `json:"winner_id"`
	LoserID           string    `json:"loser_id"`
	Stake             int64     `json:"stake"`
	Pot               int64     `json:"pot"`
	Rake              int64     `json:"rake"`
	Reward            int64     `json:"reward"`
	RatingApplied     bool      `json:"rating_applied"`
	SuppressionReason string    `json:"suppression_reason,omitempty"`
	WinnerRating      int       `json:"winner_rating"`
	LoserRating       int       `json:"loser_rating"`
	FinishedAt        time.Time `json:"finished_at"`
}

// NewMatchFinished builds the event from a committed settlement.
func NewMatchFinished(res arena.SettlementResult, suppressionReason string) MatchFinished {
	m := res.Match
	ev := MatchFinished{
		EventID:           uuid.NewString(),
		MatchID:           m.ID,
		WinnerID:          m.WinnerID,
		LoserID:           m.Opponent(m.WinnerID),
		Stake:             m.Stake,
		Pot:               2 * m.Stake,
		Rake:              res.Rake,
		Reward:            res.Reward,
		RatingApplied:     res.RatingApplied,
		SuppressionReason: suppressionReason,
		WinnerRating:      res.WinnerRating,
		LoserRating:       res.LoserRating,
	}
	if m.FinishedAt != nil {
		ev.FinishedAt = *m.FinishedAt
	}
	return ev
}
