package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouter_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	backends := map[string]*config.Config{
		config.BackendMemory: {StoreBackend: config.BackendMemory},
		config.BackendSQLite: {StoreBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "db", "adventure.db")},
		config.BackendRedis:  {StoreBackend: config.BackendRedis, RedisURL: mr.Addr(), TranscriptTTL: time.Hour, StepLockTTL: time.Minute},
	}

	for name, cfg := range backends {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			store, rdb, err := openStore(ctx, cfg, discardLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			assert.Equal(t, name == config.BackendRedis, rdb != nil)

			router := newRouter(cfg, discardLogger(), store, rdb)

			rr := get(t, router, "/health")
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

			rr = post(t, router, "/v1/games", `{"scenario":"lighthouse.json","user_id":"tester"}`)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			var game handlers.GameResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&game))

			rr = post(t, router, "/v1/games/"+game.PlayerID.String()+"/step", `{"command":"take Rusty Key"}`)
			require.Equal(t, http.StatusOK, rr.Code)

			rr = get(t, router, "/v1/games/"+game.PlayerID.String()+"/transcript")
			if name == config.BackendRedis {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Contains(t, rr.Body.String(), "Rusty Key")
				assert.False(t, mr.Exists("game-lock:"+game.PlayerID.String()), "step lock is released")
			} else {
				assert.Equal(t, http.StatusNotImplemented, rr.Code)
			}
		})
	}
}

func TestScenarioFS_DataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scenarios"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenarios", "tiny.yaml"),
		[]byte("name: Tiny\nstart: hall\nrooms:\n  - name: hall\n    final: true\n"), 0o644))

	cfg := &config.Config{StoreBackend: config.BackendMemory, DataDir: dir}
	store, _, err := openStore(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	router := newRouter(cfg, discardLogger(), store, nil)

	rr := get(t, router, "/v1/scenarios")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"scenarios":{"Tiny":"tiny.yaml"}}`, rr.Body.String())
}
