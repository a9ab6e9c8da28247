// Command server runs the MuseDock admin panels and bearer-token API behind
// the security pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/caimari/musedock-sub009/internal/api"
	"github.com/caimari/musedock-sub009/internal/infrastructure/config"
	mongorepo "github.com/caimari/musedock-sub009/internal/infrastructure/db/mongo"
	redisstore "github.com/caimari/musedock-sub009/internal/infrastructure/db/redis"
	"github.com/caimari/musedock-sub009/internal/infrastructure/queue"
	"github.com/caimari/musedock-sub009/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine: production reads the real environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "musedock",
		Env:     cfg.Env,
	})

	client, db, err := mongorepo.Connect(ctx, mongorepo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connect")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongodb indexes")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()

	// The audit workers outlive the HTTP server so in-flight events drain.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Security.AuditWorkers, mongorepo.NewSecurityLogRepository(db), logger.With("audit"))
	dispatcher.Start(auditCtx)

	e, err := api.NewRouter(api.Dependencies{
		Config:  cfg,
		Mongo:   db,
		Redis:   rdb,
		Auditor: dispatcher,
		Logger:  logger.With("http"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Bool("multi_tenant", cfg.MultiTenantEnabled).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopAudit()
	dispatcher.Wait()
	log.Info().Msg("stopped")
}
