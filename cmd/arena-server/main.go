package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"rps-arena/internal/antifarm"
	"rps-arena/internal/arena"
	"rps-arena/internal/config"
	"rps-arena/internal/events"
	"rps-arena/internal/ledger"
	"rps-arena/internal/logging"
	"rps-arena/internal/matchmaking"
	"rps-arena/internal/ratelimit"
	"rps-arena/internal/round"
	"rps-arena/internal/settlement"
	"rps-arena/internal/store"
	"rps-arena/internal/store/memstore"
	httptransport "rps-arena/internal/transport/http"
	"rps-arena/internal/withdrawal"
)

// engineStore is everything the engine asks of persistence. Both the
// PostgreSQL store and memstore satisfy it.
type engineStore interface {
	ledger.Store
	matchmaking.Store
	round.Store
	settlement.Store
	antifarm.Store
	ratelimit.Store
	withdrawal.Store
	httptransport.Store
	Close()
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer func() { _ = logging.Close() }()

	rake, err := cfg.Match.Rake()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rake rate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := arena.SystemClock{}
	st := openStore(ctx, cfg.Server, clock)
	defer st.Close()

	pool, closePool := openPool(ctx, cfg.Server)
	defer closePool()

	publisher, closePublisher := openPublisher(cfg.Server)
	defer closePublisher()
	dispatcher := events.NewDispatcher(publisher, events.DispatcherConfig{
		Workers:      cfg.Server.EventWorkers,
		Buffer:       cfg.Server.EventBuffer,
		RetryMax:     cfg.Server.EventRetryMax,
		RetryBase:    time.Duration(cfg.Server.EventRetryBase) * time.Millisecond,
		DrainTimeout: time.Duration(cfg.Server.EventDrainTimeout) * time.Millisecond,
	})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher.Start(dispatchCtx)

	settler := settlement.New(st,
		antifarm.New(st, cfg.Match.FarmLookback, cfg.Match.FarmThreshold),
		dispatcher, clock,
		settlement.Config{RakeRate: rake, EloK: cfg.Match.EloK})
	rateGuard := ratelimit.New(st, clock, cfg.Match.RateWindow, cfg.Match.RateLimit)

	deps := httptransport.Deps{
		Store:  st,
		Ledger: ledger.New(st),
		Queue:  matchmaking.NewQueue(st, pool, clock, cfg.Match.QueueTimeout),
		Rounds: round.NewMachine(st, settler, rateGuard, clock, round.Config{
			RoundTimeout: cfg.Match.RoundTimeout,
			WinThreshold: cfg.Match.WinThreshold,
		}),
		Withdrawals:     withdrawal.NewService(st, clock, cfg.Match.WithdrawMin, cfg.Match.WithdrawDailyCap),
		Clock:           clock,
		StartingBalance: cfg.Match.StartingBalance,
	}
	r := httptransport.NewRouter(deps, cfg.Server)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	// Events published by requests that finished during Shutdown are still in
	// the buffer; Wait delivers them before the publisher closes.
	stopDispatch()
	dispatcher.Wait()
}

func openStore(ctx context.Context, cfg config.ServerConfig, clock arena.Clock) engineStore {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; balances are lost on restart")
		return memstore.New(clock)
	case "postgres":
		st, err := store.New(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		return st
	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("unknown store driver")
		return nil
	}
}

func openPool(ctx context.Context, cfg config.ServerConfig) (matchmaking.Pool, func()) {
	switch cfg.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		log.Info().Str("addr", cfg.RedisAddr).Str("prefix", cfg.RedisPrefix).Msg("queue backend redis")
		return matchmaking.NewRedisPool(client, cfg.RedisPrefix), func() { _ = client.Close() }
	case "memory", "":
		return matchmaking.NewMemoryPool(), func() {}
	default:
		log.Fatal().Str("backend", cfg.QueueBackend).Msg("unknown queue backend")
		return nil, nil
	}
}

func openPublisher(cfg config.ServerConfig) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.LogPublisher{}, func() {}
	}
	kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing match events to kafka")
	return events.Fanout{events.LogPublisher{}, kp}, func() {
		if err := kp.Close(); err != nil {
			log.Error().Err(err).Msg("kafka writer close failed")
		}
	}
}
