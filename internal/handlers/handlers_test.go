package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/adventure-engine/internal/services/transcript"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func builtinCatalog() *scenario.Catalog {
	return scenario.NewCatalog(scenario.Builtin(), testLogger())
}

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTranscript(t *testing.T) *transcript.Transcript {
	t.Helper()
	client, _ := newRedisClient(t)
	return transcript.New(client, 0)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func newGame(t *testing.T, h *GameHandler) GameResponse {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/v1/games", CreateGameRequest{Scenario: "office.yaml", UserID: "user-1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[GameResponse](t, rr)
}

func newMemoryStore() *storage.MockStorage {
	return storage.NewMockStorage()
}
