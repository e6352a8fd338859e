package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/finapp/internal/config"
	"github.com/iliyamo/finapp/internal/database"
	"github.com/iliyamo/finapp/internal/handler"
	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/queue"
	"github.com/iliyamo/finapp/internal/repository"
	"github.com/iliyamo/finapp/internal/router"
	"github.com/iliyamo/finapp/internal/service"
	"github.com/iliyamo/finapp/internal/utils"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rl, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	rc, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	// A typed nil *redis.Client must not reach the limiter as a non-nil
	// interface.
	var scripter redis.Scripter
	if rl.Enabled {
		if rdb := config.NewRedisClient(rc); rdb != nil {
			defer func() { _ = rdb.Close() }()
			scripter = rdb
		} else {
			log.Warn("redis unavailable; rate limiting disabled", "addr", rc.Address())
		}
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL, log)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", "err", err)
			}
		}()
	}

	e, err := router.New(router.Deps{
		Config:    cfg,
		RateLimit: rl,
		Redis:     scripter,
		Users:     st.users,
		Accounts:  st.accounts,
		Owners:    st.owners,
		Tokens:    utils.NewTokenCodec(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Events:    events,
		Log:       log,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

type stores struct {
	users    handler.UserStore
	accounts handler.AccountStore
	owners   middleware.OwnershipResolver
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{users: mem.Users(), accounts: mem.Accounts(), owners: mem}, func() {}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, nil, err
	}
	return mysqlStores(db), func() { _ = db.Close() }, nil
}

func mysqlStores(db *sql.DB) stores {
	return stores{
		users:    repository.NewUserRepo(db),
		accounts: repository.NewAccountRepo(db),
		owners:   repository.NewUserAccountRepo(db),
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
