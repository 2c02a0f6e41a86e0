package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"rps-arena/internal/antifarm"
	"rps-arena/internal/arena"
	"rps-arena/internal/config"
	"rps-arena/internal/ledger"
	"rps-arena/internal/matchmaking"
	"rps-arena/internal/ratelimit"
	"rps-arena/internal/round"
	"rps-arena/internal/settlement"
	"rps-arena/internal/store/memstore"
	"rps-arena/internal/withdrawal"
)

const testAdminKey = "admin-secret"

func newTestRouter(t *testing.T) (*chi.Mux, *memstore.Store) {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := arena.ClockFunc(func() time.Time { return now })
	st := memstore.New(clock)
	settler := settlement.New(st, antifarm.New(st, 0, 0), nil, clock, settlement.Config{})
	deps := Deps{
		Store:           st,
		Ledger:          ledger.New(st),
		Queue:           matchmaking.NewQueue(st, matchmaking.NewMemoryPool(), clock, 0),
		Rounds:          round.NewMachine(st, settler, ratelimit.New(st, clock, 0, 0), clock, round.Config{}),
		Withdrawals:     withdrawal.NewService(st, clock, 0, 0),
		Clock:           clock,
		StartingBalance: 1000,
	}
	return NewRouter(deps, config.ServerConfig{AdminAPIKey: testAdminKey}), st
}

func doJSON(t *testing.T, router http.Handler, method, path, playerID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if playerID != "" {
		req.Header.Set("X-Player-ID", playerID)
	}
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	decode(t, w, &resp)
	return resp["error"]
}

func createPlayer(t *testing.T, router http.Handler, name string) arena.Player {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/admin/players", "", map[string]any{"username": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create player %s: status %d body %s", name, w.Code, w.Body.String())
	}
	var p arena.Player
	decode(t, w, &p)
	return p
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPlayerRoutesRequireKnownPlayer(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/wallet", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/wallet", "01NOBODY", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown player: expected 401, got %d", w.Code)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer key, got %d", w.Code)
	}
}

func TestMatchFlowOverHTTP(t *testing.T) {
	router, st := newTestRouter(t)
	alice := createPlayer(t, router, "alice")
	bob := createPlayer(t, router, "bob")

	w := doJSON(t, router, http.MethodPost, "/api/queue", bob.ID, map[string]any{"stake": 100})
	if w.Code != http.StatusAccepted {
		t.Fatalf("bob enqueue: expected 202, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/queue", alice.ID, map[string]any{"stake": 100})
	if w.Code != http.StatusCreated {
		t.Fatalf("alice enqueue: expected 201, got %d body %s", w.Code, w.Body.String())
	}
	var ticket matchmaking.Ticket
	decode(t, w, &ticket)
	if !ticket.Matched || ticket.Match == nil {
		t.Fatalf("expected a match, got %+v", ticket)
	}
	matchPath := "/api/matches/" + ticket.Match.ID
	if ticket.Match.Player1ID != alice.ID {
		t.Fatalf("expected enqueuing player in seat 1, got %s", ticket.Match.Player1ID)
	}
	w = doJSON(t, router, http.MethodGet, "/api/matches/active", bob.ID, nil)
	var active struct {
		Match arena.Match `json:"match"`
	}
	decode(t, w, &active)
	if active.Match.ID != ticket.Match.ID {
		t.Fatalf("parked player should find match %s, got %q", ticket.Match.ID, active.Match.ID)
	}

	carol := createPlayer(t, router, "carol")
	w = doJSON(t, router, http.MethodGet, matchPath, carol.ID, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider view: expected 403, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, matchPath+"/moves", alice.ID, map[string]any{"move": "lizard"})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_move" {
		t.Fatalf("expected 400 invalid_move, got %d", w.Code)
	}

	var last map[string]any
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, http.MethodPost, matchPath+"/moves", alice.ID, map[string]any{"move": "rock"})
		if w.Code != http.StatusOK {
			t.Fatalf("round %d alice move: status %d body %s", i, w.Code, w.Body.String())
		}
		w = doJSON(t, router, http.MethodGet, matchPath, bob.ID, nil)
		var view map[string]any
		decode(t, w, &view)
		if _, ok := view["round"]; !ok {
			t.Fatalf("round %d: expected an open round in match view", i)
		}
		w = doJSON(t, router, http.MethodPost, matchPath+"/moves", bob.ID, map[string]any{"move": "scissors"})
		if w.Code != http.StatusOK {
			t.Fatalf("round %d bob move: status %d body %s", i, w.Code, w.Body.String())
		}
		last = map[string]any{}
		decode(t, w, &last)
		if last["outcome"] != string(arena.OutcomePlayer1) {
			t.Fatalf("round %d: expected player1, got %v", i, last["outcome"])
		}
	}
	if last["finished"] != true || last["settlement"] == nil {
		t.Fatalf("expected finished match with settlement, got %v", last)
	}

	w = doJSON(t, router, http.MethodGet, "/api/wallet", alice.ID, nil)
	var wallet map[string]any
	decode(t, w, &wallet)
	if wallet["balance"] != float64(1080) {
		t.Fatalf("expected winner balance 1080, got %v", wallet["balance"])
	}

	w = doJSON(t, router, http.MethodPost, matchPath+"/moves", alice.ID, map[string]any{"move": "rock"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "match_not_active" {
		t.Fatalf("move on finished match: expected 409 match_not_active, got %d", w.Code)
	}

	stats, err := st.Stats(context.Background(), time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRake != 20 {
		t.Fatalf("expected rake 20, got %d", stats.TotalRake)
	}
}

func TestQueueRejectsDuplicateAndBadStake(t *testing.T) {
	router, _ := newTestRouter(t)
	alice := createPlayer(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/queue", alice.ID, map[string]any{"stake": 0})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_amount" {
		t.Fatalf("expected 400 invalid_amount, got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/queue", alice.ID, map[string]any{"stake": 50}); w.Code != http.StatusAccepted {
		t.Fatalf("first enqueue: expected 202, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/queue", alice.ID, map[string]any{"stake": 50})
	if w.Code != http.StatusConflict || errorCode(t, w) != "already_queued" {
		t.Fatalf("expected 409 already_queued, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/api/queue?stake=50", alice.ID, nil)
	var resp map[string]bool
	decode(t, w, &resp)
	if !resp["removed"] {
		t.Fatalf("expected entry removed, got %v", resp)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	alice := createPlayer(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/withdrawals", alice.ID, map[string]any{"amount": 50})
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != "below_minimum" {
		t.Fatalf("expected 422 below_minimum, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/withdrawals", alice.ID, map[string]any{"amount": 300})
	if w.Code != http.StatusCreated {
		t.Fatalf("request withdrawal: status %d body %s", w.Code, w.Body.String())
	}
	var wd arena.Withdrawal
	decode(t, w, &wd)

	w = doJSON(t, router, http.MethodPost, "/api/admin/withdrawals/"+wd.ID+"/reject", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reject: status %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/admin/withdrawals/"+wd.ID+"/approve", "", nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "withdrawal_not_pending" {
		t.Fatalf("approve after reject: expected 409 withdrawal_not_pending, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/wallet", alice.ID, nil)
	var wallet map[string]any
	decode(t, w, &wallet)
	if wallet["balance"] != float64(1000) || wallet["locked_balance"] != float64(0) {
		t.Fatalf("expected funds returned after reject, got %v", wallet)
	}

	w = doJSON(t, router, http.MethodPost, "/api/admin/players/"+alice.ID+"/flag", "", map[string]any{"flagged": true})
	if w.Code != http.StatusOK {
		t.Fatalf("flag: status %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/withdrawals", alice.ID, map[string]any{"amount": 300})
	if w.Code != http.StatusForbidden || errorCode(t, w) != "player_flagged" {
		t.Fatalf("flagged withdrawal: expected 403 player_flagged, got %d", w.Code)
	}
}

func TestAdminCreditAppendsPurchase(t *testing.T) {
	router, _ := newTestRouter(t)
	alice := createPlayer(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/admin/credits", "", map[string]any{"player_id": alice.ID, "amount": -5})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_amount" {
		t.Fatalf("expected 400 invalid_amount, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/admin/credits", "", map[string]any{"player_id": alice.ID, "amount": 250})
	if w.Code != http.StatusOK {
		t.Fatalf("credit: status %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/admin/transactions?player_id="+alice.ID, "", nil)
	var resp struct {
		Items []arena.Transaction `json:"items"`
	}
	decode(t, w, &resp)
	if len(resp.Items) != 2 || resp.Items[0].Amount != 250 || resp.Items[0].Kind != arena.TxPurchase {
		t.Fatalf("expected newest purchase of 250 first, got %+v", resp.Items)
	}
}

func TestWriteErrorPrefersEscrowFailure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, &arena.EscrowError{PlayerID: "p1", Cause: arena.ErrInsufficientBalance})
	if w.Code != http.StatusConflict || errorCode(t, w) != "escrow_failed" {
		t.Fatalf("expected 409 escrow_failed, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	WriteError(w, errors.New("boom"))
	if w.Code != http.StatusInternalServerError || errorCode(t, w) != "internal_error" {
		t.Fatalf("expected 500 internal_error, got %d", w.Code)
	}
}
