package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"rps-arena/internal/arena"
	"rps-arena/internal/config"
	"rps-arena/internal/ledger"
	"rps-arena/internal/matchmaking"
	"rps-arena/internal/round"
	"rps-arena/internal/withdrawal"
)

// Store is the read side the handlers need directly; writes go through the
// engine services.
type Store interface {
	Ping(ctx context.Context) error
	CreatePlayer(ctx context.Context, username string, initialBalance int64) (arena.Player, error)
	GetPlayer(ctx context.Context, id string) (arena.Player, error)
	SetFlagged(ctx context.Context, id string, flagged bool) error
	GetMatch(ctx context.Context, id string) (arena.Match, error)
	RecentMatches(ctx context.Context, playerID string, limit int, excludeMatchID string) ([]arena.Match, error)
	ListTransactions(ctx context.Context, playerID string, limit, offset int) ([]arena.Transaction, error)
	Stats(ctx context.Context, now time.Time) (arena.PlatformStats, error)
}

type Deps struct {
	Store       Store
	Ledger      *ledger.Ledger
	Queue       *matchmaking.Queue
	Rounds      *round.Machine
	Withdrawals *withdrawal.Service
	Clock       arena.Clock
	// StartingBalance is granted to players created through the admin API
	// when the request omits one.
	StartingBalance int64
}

func NewRouter(deps Deps, cfg config.ServerConfig) *chi.Mux {
	if deps.Clock == nil {
		deps.Clock = arena.SystemClock{}
	}
	playerHandlers := NewPlayerHandlers(deps)
	adminHandlers := NewAdminHandlers(deps)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Group(func(r chi.Router) {
			r.Use(PlayerMiddleware(deps.Store))
			r.Get("/wallet", playerHandlers.Wallet())
			r.Get("/wallet/transactions", playerHandlers.Transactions())
			r.Post("/queue", playerHandlers.JoinQueue())
			r.Delete("/queue", playerHandlers.LeaveQueue())
			r.Get("/matches/active", playerHandlers.ActiveMatch())
			r.Get("/matches/{match_id}", playerHandlers.Match())
			r.Post("/matches/{match_id}/moves", playerHandlers.SubmitMove())
			r.Post("/withdrawals", playerHandlers.RequestWithdrawal())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/players", adminHandlers.CreatePlayer())
			r.Post("/players/{player_id}/flag", adminHandlers.FlagPlayer())
			r.Post("/credits", adminHandlers.Credit())
			r.Get("/stats", adminHandlers.Stats())
			r.Get("/transactions", adminHandlers.Transactions())
			r.Get("/queue", adminHandlers.QueueDepth())
			r.Post("/withdrawals/{withdrawal_id}/approve", adminHandlers.ResolveWithdrawal(true))
			r.Post("/withdrawals/{withdrawal_id}/reject", adminHandlers.ResolveWithdrawal(false))
			r.Post("/matches/{match_id}/settle", adminHandlers.RetrySettlement())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
