package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
	"rps-arena/internal/config"
	"rps-arena/internal/logging"
)

var moves = []arena.Move{arena.Rock, arena.Paper, arena.Scissors}

type matchView struct {
	Match arena.Match `json:"match"`
	Round *struct {
		Expired bool `json:"expired"`
	} `json:"round"`
}

type moveReply struct {
	Match    arena.Match   `json:"match"`
	Outcome  arena.Outcome `json:"outcome"`
	Finished bool          `json:"finished"`
}

type apiError struct {
	Status int
	Code   string `json:"error"`
}

func (e *apiError) Error() string { return fmt.Sprintf("%d %s", e.Status, e.Code) }

type client struct {
	base     string
	playerID string
	http     *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Player-ID", c.playerID)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorCode(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if os.Getenv("LOG_SERVICE") == "" {
		logCfg.Service = "rps-bot"
	}
	logCfg.Pretty = true
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer func() { _ = logging.Close() }()

	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	c := &client{base: cfg.BaseURL, playerID: cfg.PlayerID, http: &http.Client{Timeout: 10 * time.Second}}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()

	for i := 0; i < cfg.Matches; i++ {
		matchID, err := findMatch(ctx, c, cfg.Stake)
		if err != nil {
			log.Fatal().Err(err).Msg("matchmaking failed")
		}
		log.Info().Str("match_id", matchID).Int64("stake", cfg.Stake).Msg("matched")
		m, err := play(ctx, c, rnd, matchID)
		if err != nil {
			log.Fatal().Err(err).Str("match_id", matchID).Msg("match failed")
		}
		log.Info().
			Str("match_id", matchID).
			Bool("won", m.WinnerID == cfg.PlayerID).
			Int("player1_score", m.Player1Score).
			Int("player2_score", m.Player2Score).
			Msg("match_over")
	}
}

// findMatch joins the queue and, when parked, polls until an opponent pairs
// with us. A parked entry that outlives the queue timeout is re-enqueued.
func findMatch(ctx context.Context, c *client, stake int64) (string, error) {
	for {
		var ticket struct {
			Matched bool         `json:"matched"`
			Match   *arena.Match `json:"match"`
		}
		err := c.do(ctx, http.MethodPost, "/api/queue", map[string]any{"stake": stake}, &ticket)
		if err != nil && errorCode(err) != arena.ErrAlreadyQueued.Error() {
			return "", err
		}
		if ticket.Matched && ticket.Match != nil {
			return ticket.Match.ID, nil
		}
		deadline := time.Now().Add(15 * time.Second)
		for time.Now().Before(deadline) {
			var view matchView
			err := c.do(ctx, http.MethodGet, "/api/matches/active", nil, &view)
			if err == nil {
				return view.Match.ID, nil
			}
			if errorCode(err) != arena.ErrMatchNotFound.Error() {
				return "", err
			}
			time.Sleep(250 * time.Millisecond)
		}
	}
}

func play(ctx context.Context, c *client, rnd *rand.Rand, matchID string) (arena.Match, error) {
	path := "/api/matches/" + matchID
	for {
		mv := moves[rnd.Intn(len(moves))]
		var reply moveReply
		err := c.do(ctx, http.MethodPost, path+"/moves", map[string]any{"move": mv}, &reply)
		switch errorCode(err) {
		case "":
			if err != nil {
				return arena.Match{}, err
			}
		case arena.ErrRoundTimeout.Error(), arena.ErrRateLimited.Error():
			time.Sleep(200 * time.Millisecond)
			continue
		case arena.ErrMatchNotActive.Error():
			var view matchView
			if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
				return arena.Match{}, err
			}
			return view.Match, nil
		default:
			return arena.Match{}, err
		}
		log.Debug().Str("match_id", matchID).Str("move", string(mv)).Str("outcome", string(reply.Outcome)).Msg("move_sent")
		if reply.Finished {
			return reply.Match, nil
		}
		if reply.Outcome != arena.OutcomePending {
			continue
		}
		// Wait for the opponent to close the round before moving again.
		for {
			time.Sleep(100 * time.Millisecond)
			var view matchView
			if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
				return arena.Match{}, err
			}
			if view.Match.Status == arena.MatchFinished {
				return view.Match, nil
			}
			if view.Round == nil || view.Round.Expired {
				break
			}
		}
	}
}
