package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/auth"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/gamerules"
	"github.com/park285/chess-arena/internal/httpapi"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	store, err := session.NewStore(cfg.RedisURL, cfg.GameTTL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	defer store.Close()

	cat, err := msgcat.New()
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	// Postgres is optional: without it, accounts live in memory and finished
	// games are not archived.
	var userStore auth.UserStore
	var repo *session.Repository
	if cfg.DatabaseURL != "" {
		pgUsers, err := auth.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres init error: %v", err)
		}
		defer pgUsers.Close()
		userStore = pgUsers

		repo, err = session.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive repo init error: %v", err)
		}
		defer repo.Close()
	} else {
		obslog.L().Warn("no_database_configured", zap.String("mode", "in-memory users, no archive"))
		userStore = auth.NewMemoryStore()
	}

	authSvc := auth.NewService(userStore, cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub(authSvc)
	mgr := session.NewManager(store, gamerules.New(), session.NewRegistry(), hub)
	mgr.AttachRepository(repo)

	queue := matchmaking.New(nil, cfg.MaxQueueSize)
	hub.SetDispatcher(ws.NewDispatcher(queue, mgr, hub, cat))

	api := httpapi.NewServer(authSvc, cat)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("server_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
