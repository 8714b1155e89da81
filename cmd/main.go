package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/poker-service/config"
	"github.com/cwrk-planet/poker-service/internal/journal"
	"github.com/cwrk-planet/poker-service/internal/postgres"
	"github.com/cwrk-planet/poker-service/internal/registry"
	"github.com/cwrk-planet/poker-service/internal/security"
	"github.com/cwrk-planet/poker-service/internal/service"
	grpcx "github.com/cwrk-planet/poker-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/poker-service/internal/transport/http"
	"github.com/cwrk-planet/poker-service/internal/transport/ws"
	"github.com/cwrk-planet/poker-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("poker-service: %v", err)
	}
}

// run returns instead of exiting so that deferred closes always run.
func run() error {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting poker-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx := context.Background()

	// --- journal ---
	recorders := journal.Fanout{journal.NewLog(logger.L())}
	var (
		db    *postgres.DB
		async *journal.Async
	)
	if cfg.Postgres.DSN != "" {
		db, err = postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer db.Close()

		events := postgres.NewEventRepository(db.Pool)
		if err := events.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		async = journal.NewAsync(events, cfg.Postgres.JournalBuffer)
		recorders = append(recorders, async)
		slog.Info("event journal enabled", "sink", "postgres")
	}

	// --- session tokens ---
	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret, err = security.RandomBytes(32)
		if err != nil {
			return fmt.Errorf("session secret: %w", err)
		}
		slog.Warn("session.secret is empty, using a random secret; sessions will not survive a restart")
	}
	signer := security.NewSessionSigner(secret, cfg.Session.Issuer, cfg.Session.TTL)

	// --- registry & services ---
	games := registry.New(
		registry.WithCodeLength(cfg.Game.CodeLength),
		registry.WithMaxMessages(cfg.Game.MaxMessages),
		registry.WithObserver(recorders),
	)
	hub := ws.NewHub()
	eventSvc := service.NewEventService(games, hub)
	lobbySvc := service.NewLobbyService(games, signer)

	// --- WS & HTTP ---
	wsServer := ws.NewServer(hub, eventSvc, signer,
		ws.WithCookie(cfg.Session.CookieName),
		ws.WithPingEvery(cfg.HTTP.PingEvery),
	)
	handler := httpx.NewHandler(lobbySvc, eventSvc, games, hub, httpx.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
	})
	router := httpx.NewRouter(handler, wsServer, signer, httpx.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CookieName:     cfg.Session.CookieName,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC ---
	grpcSrv := grpcx.NewServer()

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case runErr = <-errCh:
		slog.Error("server error", "err", runErr)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcSrv.SetServing(false)
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	// hijacked websocket connections are not tracked by http.Server
	hub.CloseAll()
	grpcSrv.Shutdown(ctxShutdown)

	if async != nil {
		if err := async.Close(ctxShutdown); err != nil {
			slog.Warn("journal drain", "err", err)
		}
	}

	n, players := games.Stats()
	slog.Info("stopped", "games", n, "players", players)
	return runErr
}
