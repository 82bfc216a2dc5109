package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	catalog := scenario.NewCatalog(scenario.Builtin(), log)
	store := storage.NewMockStorage()

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(log, map[string]handlers.Pinger{"storage": store}))
	mux.Handle("/v1/scenarios", handlers.NewScenarioHandler(log, catalog))
	games := handlers.NewGameHandler(log, store, catalog)
	mux.Handle("/v1/games", games)
	mux.Handle("/v1/games/", games)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &apiClient{client: srv.Client(), baseURL: srv.URL}
}

func TestAPIClient(t *testing.T) {
	api := newTestAPI(t)
	require.True(t, api.healthy())

	names, files, err := api.listScenarios()
	require.NoError(t, err)
	assert.Equal(t, []string{"The Lighthouse", "The Office"}, names)
	assert.Equal(t, "office.yaml", files["The Office"])

	game, err := api.createGame("office.yaml", "console-user")
	require.NoError(t, err)
	assert.Equal(t, "the testing room", roomName(game.Prompt))

	step, err := api.step(game.PlayerID, "take Drawer Key")
	require.NoError(t, err)
	assert.Equal(t, "You take the Drawer Key.", step.Prompt)

	again, err := api.getGame(game.PlayerID)
	require.NoError(t, err)
	assert.Contains(t, again.Actions, "use Drawer Key")

	_, err = api.transcript(game.PlayerID, 5)
	assert.ErrorContains(t, err, "Transcripts are not enabled")

	_, err = api.getGame(uuid.New())
	assert.ErrorContains(t, err, "404")

	_, err = api.createGame("atlantis.yaml", "console-user")
	assert.ErrorContains(t, err, "Unknown scenario")
}

func TestAPIClient_Unreachable(t *testing.T) {
	api := &apiClient{client: http.DefaultClient, baseURL: "http://127.0.0.1:1"}
	assert.False(t, api.healthy())
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "the testing room", roomName("You are in the testing room.\nRoom with a desk."))
	assert.Empty(t, roomName("The exit North is locked."))
	assert.Equal(t, "The Testing Room", titleCaser.String(roomName("You are in the testing room.")))
}

func TestRenderLog(t *testing.T) {
	out := renderLog([]logEntry{
		{kind: entryPlayer, text: "take Drawer Key"},
		{kind: entryGame, text: "You take the Drawer Key."},
		{kind: entryError, text: "boom"},
	}, 40)

	assert.Contains(t, out, "take Drawer Key")
	assert.Contains(t, out, "You take the Drawer Key.")
	assert.Contains(t, out, "Error: boom")
}

func TestFormatTranscript(t *testing.T) {
	assert.Equal(t, "Nothing recorded yet.", formatTranscript(&handlers.TranscriptResponse{}))
}

func TestConsoleUI_PlayFlow(t *testing.T) {
	api := newTestAPI(t)
	cfg := &ConsoleConfig{UserID: "console-user"}
	var model tea.Model = NewConsoleUI(cfg, api)

	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model, _ = model.Update(model.(ConsoleUI).loadScenarios()())
	ui := model.(ConsoleUI)
	require.Equal(t, []string{"The Lighthouse", "The Office"}, ui.scenarios)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	ui = model.(ConsoleUI)
	require.False(t, ui.showScenarioModal)
	require.NotNil(t, ui.game)
	assert.Contains(t, ui.View(), "The Testing Room")

	for _, command := range []string{"take Drawer Key", "use Drawer Key", "take TPS Report", "use TPS Report", "exit North"} {
		ui.textarea.SetValue(command)
		model, cmd = ui.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd, command)
		model, cmd = model.Update(cmd())
		model, _ = model.Update(cmd())
		ui = model.(ConsoleUI)
	}

	assert.True(t, ui.game.Done)
	last := ui.log[len(ui.log)-1]
	assert.Equal(t, entryNote, last.kind)
	assert.True(t, strings.Contains(last.text, "end of this adventure"))
}
