package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/richarrd92/hobbymatch/internal/auth"
	"github.com/richarrd92/hobbymatch/internal/broadcast"
	"github.com/richarrd92/hobbymatch/internal/config"
	"github.com/richarrd92/hobbymatch/internal/database"
	"github.com/richarrd92/hobbymatch/internal/domain"
	"github.com/richarrd92/hobbymatch/internal/expiry"
	"github.com/richarrd92/hobbymatch/internal/logging"
	"github.com/richarrd92/hobbymatch/internal/media"
	"github.com/richarrd92/hobbymatch/internal/redis"
	"github.com/richarrd92/hobbymatch/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupMedia(cfg *config.Config) domain.MediaStore {
	if cfg.S3Bucket == "" {
		slog.Info("Media storage not configured, image handling disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := media.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, cfg.S3PublicBaseURL)
	if err != nil {
		slog.Error("Failed to set up media storage", "error", err)
		os.Exit(1)
	}
	return store
}

func runGracefulShutdown(srv *server.Server, sweeperCancel context.CancelFunc, sweeperDone <-chan struct{}, broadcaster *broadcast.Broadcaster, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sweeperCancel()
		select {
		case <-sweeperDone:
		case <-time.After(10 * time.Second):
			slog.Warn("Sweeper did not stop in time")
		}

		broadcaster.Close()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	var relay *goredis.Client
	if cfg.DistributedMode() {
		relay = setupRedis(cfg)
		defer func() { _ = relay.Close() }()
	} else {
		slog.Info("No Redis configured, broadcasts stay instance-local")
	}

	mediaStore := setupMedia(cfg)

	postRepo := database.NewPostRepo(pool)
	userRepo := database.NewUserRepo(pool)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	hub := broadcast.NewHub(clock, cfg.MaxFeedClients)
	broadcaster := broadcast.NewBroadcaster(hub, relay)

	// With multiple instances behind one Redis, only the lock holder sweeps.
	var sweepLock expiry.Lock
	if relay != nil {
		sweepLock = redis.NewSweepLock(relay, uuid.NewString(), 2*cfg.SweepInterval)
	}
	sweeper := expiry.NewSweeper(postRepo, mediaStore, broadcaster, sweepLock, clock, cfg.SweepInterval)
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Start(sweeperCtx)
	}()

	srv := server.NewServer(cfg, userRepo, postRepo, mediaStore, verifier, hub, broadcaster, clock, pool)

	done := runGracefulShutdown(srv, sweeperCancel, sweeperDone, broadcaster, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
