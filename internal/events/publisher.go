package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, ev MatchFinished) error
}

// LogPublisher writes every event to the global logger.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev MatchFinished) error {
	log.Info().
		Str("event_id", ev.EventID).
		Str("match_id", ev.MatchID).
		Str("winner_id", ev.WinnerID).
		Str("loser_id", ev.LoserID).
		Int64("stake", ev.Stake).
		Int64("rake", ev.Rake).
		Int64("reward", ev.Reward).
		Bool("rating_applied", ev.RatingApplied).
		Str("suppression_reason", ev.SuppressionReason).
		Msg("match_finished")
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev MatchFinished) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
