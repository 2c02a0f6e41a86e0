package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
	"rps-arena/internal/round"
)

type PlayerHandlers struct {
	deps Deps
}

func NewPlayerHandlers(deps Deps) *PlayerHandlers {
	return &PlayerHandlers{deps: deps}
}

func (h *PlayerHandlers) Wallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		bal, err := h.deps.Ledger.Balance(r.Context(), p.ID)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"player_id":      p.ID,
			"username":       p.Username,
			"balance":        bal.Balance,
			"locked_balance": bal.Locked,
			"rating":         p.Rating,
			"flagged":        p.Flagged,
		})
	}
}

func (h *PlayerHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		limit, offset := ParsePagination(r)
		items, err := h.deps.Store.ListTransactions(r.Context(), p.ID, limit, offset)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *PlayerHandlers) JoinQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricQueueJoinTotal.Add(1)
		var body struct {
			Stake int64 `json:"stake"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metricQueueJoinErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		p, _ := PlayerFromContext(r.Context())
		ticket, err := h.deps.Queue.Enqueue(r.Context(), p.ID, body.Stake, clientIP(r))
		if err != nil {
			metricQueueJoinErrors.Add(1)
			WriteError(w, err)
			return
		}
		status := http.StatusAccepted
		if ticket.Matched {
			status = http.StatusCreated
		}
		writeJSON(w, status, ticket)
	}
}

func (h *PlayerHandlers) LeaveQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stake, err := strconv.ParseInt(r.URL.Query().Get("stake"), 10, 64)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		p, _ := PlayerFromContext(r.Context())
		removed, err := h.deps.Queue.Leave(r.Context(), p.ID, stake)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	}
}

func (h *PlayerHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "match_id")
		m, err := h.deps.Store.GetMatch(r.Context(), matchID)
		if err != nil {
			WriteError(w, err)
			return
		}
		p, _ := PlayerFromContext(r.Context())
		if _, ok := m.Slot(p.ID); !ok {
			WriteError(w, arena.ErrNotParticipant)
			return
		}
		resp := map[string]any{"match": m}
		if snap, ok := h.deps.Rounds.ActiveRound(matchID); ok {
			resp["round"] = snap
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ActiveMatch lets a parked player discover the match its opponent created.
func (h *PlayerHandlers) ActiveMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		recent, err := h.deps.Store.RecentMatches(r.Context(), p.ID, 1, "")
		if err != nil {
			WriteError(w, err)
			return
		}
		if len(recent) == 0 || recent[0].Status != arena.MatchActive {
			WriteError(w, arena.ErrMatchNotFound)
			return
		}
		resp := map[string]any{"match": recent[0]}
		if snap, ok := h.deps.Rounds.ActiveRound(recent[0].ID); ok {
			resp["round"] = snap
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PlayerHandlers) SubmitMove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricMoveSubmitTotal.Add(1)
		var body struct {
			Move string `json:"move"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metricMoveSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		p, _ := PlayerFromContext(r.Context())
		matchID := chi.URLParam(r, "match_id")
		res, err := h.deps.Rounds.SubmitMove(r.Context(), matchID, p.ID, body.Move)
		if err != nil {
			metricMoveSubmitErrors.Add(1)
			WriteError(w, err)
			return
		}
		if res.Finished {
			log.Info().Str("match_id", matchID).Str("winner_id", res.Match.WinnerID).Msg("match_finished")
		}
		writeJSON(w, http.StatusOK, moveResponse(res))
	}
}

func moveResponse(res round.Result) map[string]any {
	out := map[string]any{
		"match":    res.Match,
		"outcome":  res.Outcome,
		"finished": res.Finished,
	}
	if res.Moves != nil {
		out["moves"] = res.Moves
	}
	if res.Settlement != nil {
		out["settlement"] = res.Settlement
	}
	return out
}

func (h *PlayerHandlers) RequestWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricWithdrawalRequestTotal.Add(1)
		var body struct {
			Amount int64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metricWithdrawalRequestErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		p, _ := PlayerFromContext(r.Context())
		wd, err := h.deps.Withdrawals.Request(r.Context(), p.ID, body.Amount)
		if err != nil {
			metricWithdrawalRequestErrors.Add(1)
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, wd)
	}
}
