package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
)

type AdminHandlers struct {
	deps Deps
}

func NewAdminHandlers(deps Deps) *AdminHandlers {
	return &AdminHandlers{deps: deps}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.deps.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) CreatePlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Balance  *int64 `json:"balance"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Username == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		initial := h.deps.StartingBalance
		if body.Balance != nil {
			initial = *body.Balance
		}
		p, err := h.deps.Store.CreatePlayer(r.Context(), body.Username, initial)
		if err != nil {
			WriteError(w, err)
			return
		}
		log.Info().Str("player_id", p.ID).Str("username", p.Username).Int64("balance", p.Balance).Msg("player_created")
		writeJSON(w, http.StatusCreated, p)
	}
}

func (h *AdminHandlers) FlagPlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Flagged bool `json:"flagged"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		playerID := chi.URLParam(r, "player_id")
		if err := h.deps.Store.SetFlagged(r.Context(), playerID, body.Flagged); err != nil {
			WriteError(w, err)
			return
		}
		log.Info().Str("player_id", playerID).Bool("flagged", body.Flagged).Msg("player_flag_changed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "player_id": playerID, "flagged": body.Flagged})
	}
}

// Credit records a chip purchase settled outside the arena.
func (h *AdminHandlers) Credit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
			Amount   int64  `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.PlayerID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		bal, err := h.deps.Ledger.Credit(r.Context(), body.PlayerID, body.Amount, arena.TxPurchase)
		if err != nil {
			WriteError(w, err)
			return
		}
		metricAdminCreditTotal.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "balance": bal.Balance, "locked_balance": bal.Locked})
	}
}

func (h *AdminHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.deps.Store.Stats(r.Context(), h.deps.Clock.Now())
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (h *AdminHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		playerID := r.URL.Query().Get("player_id")
		items, err := h.deps.Store.ListTransactions(r.Context(), playerID, limit, offset)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) QueueDepth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stake, err := strconv.ParseInt(r.URL.Query().Get("stake"), 10, 64)
		if err != nil || stake <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		n, err := h.deps.Queue.Depth(r.Context(), stake)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stake": stake, "depth": n})
	}
}

func (h *AdminHandlers) ResolveWithdrawal(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "withdrawal_id")
		var (
			wd  arena.Withdrawal
			err error
		)
		if approve {
			wd, err = h.deps.Withdrawals.Approve(r.Context(), id)
		} else {
			wd, err = h.deps.Withdrawals.Reject(r.Context(), id)
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wd)
	}
}

func (h *AdminHandlers) RetrySettlement() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.deps.Rounds.RetrySettlement(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moveResponse(res))
	}
}
