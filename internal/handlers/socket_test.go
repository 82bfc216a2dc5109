package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func websocketURL(serverURL string, playerID uuid.UUID) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/v1/games/" + playerID.String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestGameHandler_Socket(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())
	game := newGame(t, h)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conn := dial(t, websocketURL(srv.URL, game.PlayerID))

	var first StepResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, game.Prompt, first.Prompt)
	assert.False(t, first.Done)

	for _, cmd := range []string{"take Drawer Key", "use Drawer Key", "take TPS Report", "use TPS Report", "  exit north  "} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(cmd)))
		var resp StepResponse
		require.NoError(t, conn.ReadJSON(&resp), cmd)
		assert.NotEmpty(t, resp.Prompt, cmd)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("help")))
	var last StepResponse
	require.NoError(t, conn.ReadJSON(&last))
	assert.True(t, last.Done)
}

func TestGameHandler_SocketUnknownPlayer(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial(websocketURL(srv.URL, uuid.New()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGameHandler_SocketOrigin(t *testing.T) {
	h := NewGameHandler(testLogger(), newMemoryStore(), builtinCatalog(),
		WithAllowedOrigins("https://play.example.com/", " "))
	game := newGame(t, h)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	wsURL := websocketURL(srv.URL, game.PlayerID)

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "no origin header", origin: "", ok: true},
		{name: "same host", origin: srv.URL, ok: true},
		{name: "allowlisted", origin: "https://PLAY.example.com", ok: true},
		{name: "foreign host", origin: "https://evil.example.com", ok: false},
		{name: "allowlisted host on other scheme", origin: "http://play.example.com", ok: false},
		{name: "garbage", origin: "::not a url", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if resp != nil {
				defer resp.Body.Close()
			}
			if !tt.ok {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer conn.Close()
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			var first StepResponse
			require.NoError(t, conn.ReadJSON(&first))
			assert.Equal(t, game.Prompt, first.Prompt)
		})
	}
}
