package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/internal/middleware"
	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/internal/services/gamelock"
	"github.com/jwebster45206/adventure-engine/internal/services/transcript"
	internalstorage "github.com/jwebster45206/adventure-engine/internal/storage"
	"github.com/jwebster45206/adventure-engine/internal/storage/sqlite"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// openStore opens the configured game store. The Redis client is returned
// as well when the backend is Redis, so events and transcripts can share it.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.GameStore, *redis.Client, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		store, err := internalstorage.NewRedisStorage(cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := store.WaitForConnection(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store.Client(), nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	default:
		log.Warn("Using in-memory storage; games are lost on restart")
		return storage.NewMockStorage(), nil, nil
	}
}

// scenarioFS returns DataDir/scenarios, or the built-in scenarios when no
// data directory is configured.
func scenarioFS(cfg *config.Config) fs.FS {
	if cfg.DataDir == "" {
		return scenario.Builtin()
	}
	return os.DirFS(filepath.Join(cfg.DataDir, "scenarios"))
}

func newRouter(cfg *config.Config, log *slog.Logger, store storage.GameStore, rdb *redis.Client) http.Handler {
	catalog := scenario.NewCatalog(scenarioFS(cfg), log)

	gameOpts := []handlers.GameOption{handlers.WithAllowedOrigins(cfg.AllowedOrigins...)}
	if rdb != nil {
		gameOpts = append(gameOpts,
			handlers.WithObserver(events.NewBroadcaster(rdb, log)),
			handlers.WithTranscript(transcript.New(rdb, cfg.TranscriptTTL)))
		if cfg.StepLockTTL > 0 {
			gameOpts = append(gameOpts, handlers.WithLock(gamelock.New(rdb, cfg.StepLockTTL, log)))
		}
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(log, map[string]handlers.Pinger{"storage": store})
	mux.Handle("/health", healthHandler)

	scenarioHandler := handlers.NewScenarioHandler(log, catalog)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	gameHandler := handlers.NewGameHandler(log, store, catalog, gameOpts...)
	mux.Handle("/v1/games", gameHandler)
	mux.Handle("/v1/games/", gameHandler)

	if rdb != nil {
		mux.Handle("/v1/events/games/", handlers.NewEventsHandler(rdb, log))
	}

	return middleware.Chain(mux, middleware.Logger(log), middleware.Recover(log))
}
