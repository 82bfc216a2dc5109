package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/internal/services/gamelock"
	"github.com/jwebster45206/adventure-engine/internal/services/transcript"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameHandler_Create(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())

	rr := doJSON(t, h, http.MethodPost, "/v1/games", CreateGameRequest{UserID: "user-1"})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	resp := decode[GameResponse](t, rr)
	assert.NotEqual(t, uuid.Nil, resp.PlayerID)
	assert.Contains(t, resp.Prompt, "You are in the testing room.")
	assert.Equal(t, []string{"exit North", "examine North", "take Drawer Key", "inventory", "help"}, resp.Actions)
	assert.False(t, resp.Done)
}

func TestGameHandler_CreateErrors(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{"malformed json", "not an object", http.StatusBadRequest},
		{"missing user", CreateGameRequest{Scenario: "office.yaml"}, http.StatusBadRequest},
		{"unknown scenario", CreateGameRequest{Scenario: "atlantis.yaml", UserID: "user-1"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/v1/games", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rr).Error)
		})
	}

	rr := doJSON(t, h, http.MethodGet, "/v1/games", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGameHandler_Walkthrough(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())
	game := newGame(t, h)
	stepPath := "/v1/games/" + game.PlayerID.String() + "/step"

	steps := []struct {
		command string
		prompt  string
		done    bool
	}{
		{"exit North", "The exit North is locked.", false},
		{"take Drawer Key", "You take the Drawer Key.", false},
		{"use Drawer Key", "The desk drawer slides open.\nThe TPS Report can now be taken.", false},
		{"take TPS Report", "You take the TPS Report.", false},
		{"use TPS Report", "You slide the TPS Report under the door and hear the lock turn.\nThe exit North is now unlocked.", false},
		{"exit North", "You go through North.", true},
	}
	for _, s := range steps {
		rr := doJSON(t, h, http.MethodPost, stepPath, StepRequest{Command: s.command})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := decode[StepResponse](t, rr)
		assert.Contains(t, resp.Prompt, s.prompt, s.command)
		assert.Equal(t, s.done, resp.Done, s.command)
	}

	rr := doJSON(t, h, http.MethodGet, "/v1/games/"+game.PlayerID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	state := decode[GameResponse](t, rr)
	assert.True(t, state.Done)
	assert.Contains(t, state.Prompt, "You are in the production room.")
}

func TestGameHandler_UnknownInputIsNotAnError(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())
	game := newGame(t, h)

	rr := doJSON(t, h, http.MethodPost, "/v1/games/"+game.PlayerID.String()+"/step", StepRequest{Command: "dance wildly"})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[StepResponse](t, rr)
	assert.NotEmpty(t, resp.Prompt)
	assert.False(t, resp.Done)
}

func TestGameHandler_RouteErrors(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())
	game := newGame(t, h)
	id := game.PlayerID.String()

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{"bad id", http.MethodGet, "/v1/games/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown player", http.MethodGet, "/v1/games/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown player step", http.MethodPost, "/v1/games/" + uuid.NewString() + "/step", StepRequest{Command: "help"}, http.StatusNotFound},
		{"unknown action", http.MethodGet, "/v1/games/" + id + "/dance", nil, http.StatusNotFound},
		{"too deep", http.MethodGet, "/v1/games/" + id + "/step/again", nil, http.StatusNotFound},
		{"step with GET", http.MethodGet, "/v1/games/" + id + "/step", nil, http.StatusMethodNotAllowed},
		{"read with DELETE", http.MethodDelete, "/v1/games/" + id, nil, http.StatusMethodNotAllowed},
		{"malformed step", http.MethodPost, "/v1/games/" + id + "/step", "oops", http.StatusBadRequest},
		{"transcripts disabled", http.MethodGet, "/v1/games/" + id + "/transcript", nil, http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

// brokenStore knows the player but has lost their room.
type brokenStore struct {
	*storage.MockStorage
}

func (brokenStore) FindRoomOccupiedByPlayer(ctx context.Context, playerID uuid.UUID) (world.Room, error) {
	return world.Room{}, storage.ErrPlayerNotInRoom
}

func TestGameHandler_DataIntegrityErrorsAre500(t *testing.T) {
	store := newMemoryStore()
	h := NewGameHandler(testLogger(), store, builtinCatalog())
	game := newGame(t, h)

	broken := NewGameHandler(testLogger(), brokenStore{store}, builtinCatalog())
	rr := doJSON(t, broken, http.MethodPost, "/v1/games/"+game.PlayerID.String()+"/step", StepRequest{Command: "help"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = doJSON(t, broken, http.MethodGet, "/v1/games/"+game.PlayerID.String(), nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type failingPlayerStore struct {
	*storage.MockStorage
}

func (failingPlayerStore) FindPlayer(ctx context.Context, playerID uuid.UUID) (world.Player, error) {
	return world.Player{}, errors.New("connection reset")
}

func TestGameHandler_StorageFailureIs500(t *testing.T) {
	h := NewGameHandler(testLogger(), failingPlayerStore{newMemoryStore()}, builtinCatalog())

	rr := doJSON(t, h, http.MethodGet, "/v1/games/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGameHandler_ObserverAndTranscript(t *testing.T) {
	var seen []engine.EventType
	observer := engine.ObserverFunc(func(ctx context.Context, ev engine.Event) {
		seen = append(seen, ev.Type)
	})
	tr := newTranscript(t)
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog(),
		WithObserver(observer), WithTranscript(tr))
	game := newGame(t, h)
	id := game.PlayerID.String()

	for _, cmd := range []string{"take Drawer Key", "inventory", "use Drawer Key"} {
		rr := doJSON(t, h, http.MethodPost, "/v1/games/"+id+"/step", StepRequest{Command: cmd})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, []engine.EventType{engine.EventTaken, engine.EventUnlocked}, seen)

	rr := doJSON(t, h, http.MethodGet, "/v1/games/"+id+"/transcript?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[TranscriptResponse](t, rr)
	assert.Equal(t, game.PlayerID, resp.PlayerID)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "inventory", resp.Entries[0].Command)
	assert.Equal(t, "You have:\n- Drawer Key", resp.Entries[0].Response)
	assert.Equal(t, "use Drawer Key", resp.Entries[1].Command)

	rr = doJSON(t, h, http.MethodGet, "/v1/games/"+id+"/transcript?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGameHandler_LockedGameIs409(t *testing.T) {
	client, mr := newRedisClient(t)
	locker := gamelock.New(client, 30*time.Second, testLogger())
	tr := transcript.New(client, 0)
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog(), WithLock(locker), WithTranscript(tr))
	game := newGame(t, h)
	id := game.PlayerID.String()

	release, err := locker.Acquire(context.Background(), game.PlayerID)
	require.NoError(t, err)

	rr := doJSON(t, h, http.MethodPost, "/v1/games/"+id+"/step", StepRequest{Command: "take Drawer Key"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	n, err := tr.Len(context.Background(), game.PlayerID)
	require.NoError(t, err)
	assert.Zero(t, n)

	release()
	rr = doJSON(t, h, http.MethodPost, "/v1/games/"+id+"/step", StepRequest{Command: "take Drawer Key"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "You take the Drawer Key.", decode[StepResponse](t, rr).Prompt)

	mr.Close()
	rr = doJSON(t, h, http.MethodPost, "/v1/games/"+id+"/step", StepRequest{Command: "inventory"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
