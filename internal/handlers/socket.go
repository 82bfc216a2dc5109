package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jwebster45206/adventure-engine/internal/logger"
)

const maxCommandBytes = 4096

// handleSocket plays a game over a WebSocket. The first message describes the
// current room; after that every text frame is a command and every reply is a
// StepResponse.
func (h *GameHandler) handleSocket(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	log := logger.WithPlayer(h.logger, playerID.String())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxCommandBytes)

	ctx := r.Context()
	e := h.engineFor(playerID)
	prompt, err := e.Prompt(ctx)
	if err != nil {
		log.Error("Failed to describe game", "error", err)
		closeSocket(conn, websocket.CloseInternalServerErr, "failed to load game")
		return
	}
	done, err := e.GameIsOver(ctx)
	if err != nil {
		log.Error("Failed to check game over", "error", err)
		closeSocket(conn, websocket.CloseInternalServerErr, "failed to load game")
		return
	}
	if err := conn.WriteJSON(StepResponse{Done: done, Prompt: prompt}); err != nil {
		return
	}
	log.Info("WebSocket session started")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debug("WebSocket read ended", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Debug("Discarding non-text frame", "type", msgType)
			continue
		}

		resp, err := h.play(ctx, playerID, strings.TrimSpace(string(payload)))
		if errors.Is(err, errStepInProgress) {
			closeSocket(conn, websocket.CloseTryAgainLater, "another command is in progress")
			return
		}
		if err != nil {
			closeSocket(conn, websocket.CloseInternalServerErr, "failed to perform command")
			return
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

func closeSocket(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
