package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/services/gamelock"
	"github.com/jwebster45206/adventure-engine/internal/services/transcript"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// DefaultScenario is used when a new game request names no scenario.
const DefaultScenario = "office.yaml"

// TranscriptStore records turns of play.
type TranscriptStore interface {
	Append(ctx context.Context, playerID uuid.UUID, command, response string) error
	Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]transcript.Entry, error)
}

// CreateGameRequest defines the request body for starting a new game
type CreateGameRequest struct {
	Scenario string `json:"scenario"` // Scenario filename, defaults to DefaultScenario
	UserID   string `json:"user_id"`
}

type GameResponse struct {
	PlayerID uuid.UUID `json:"player_id"`
	Prompt   string    `json:"prompt"`
	Actions  []string  `json:"actions"`
	Done     bool      `json:"done"`
}

type StepRequest struct {
	Command string `json:"command"`
}

type StepResponse struct {
	Done   bool   `json:"done"`
	Prompt string `json:"prompt"`
}

type TranscriptResponse struct {
	PlayerID uuid.UUID          `json:"player_id"`
	Entries  []transcript.Entry `json:"entries"`
}

// StepLocker serializes commands for one player. Acquire returns
// gamelock.ErrLocked while another command holds the lock.
type StepLocker interface {
	Acquire(ctx context.Context, playerID uuid.UUID) (release func(), err error)
}

// errStepInProgress is returned by play when the player's lock is held.
var errStepInProgress = errors.New("another command is in progress")

type GameHandler struct {
	store      storage.GameStore
	catalog    ScenarioCatalog
	observer   engine.Observer
	transcript TranscriptStore
	locker     StepLocker
	origins    map[string]bool
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// GameOption configures optional GameHandler collaborators.
type GameOption func(*GameHandler)

// WithObserver forwards engine events, e.g. to the SSE broadcaster.
func WithObserver(o engine.Observer) GameOption {
	return func(h *GameHandler) { h.observer = o }
}

// WithTranscript records every step and enables the transcript route.
func WithTranscript(t TranscriptStore) GameOption {
	return func(h *GameHandler) { h.transcript = t }
}

// WithLock rejects a command while another one for the same player runs.
func WithLock(l StepLocker) GameOption {
	return func(h *GameHandler) { h.locker = l }
}

// WithAllowedOrigins lets browsers on other hosts open the play socket.
// Entries are scheme://host[:port] and compare case-insensitively.
func WithAllowedOrigins(origins ...string) GameOption {
	return func(h *GameHandler) {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				h.origins[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
			}
		}
	}
}

func NewGameHandler(logger *slog.Logger, store storage.GameStore, catalog ScenarioCatalog, opts ...GameOption) *GameHandler {
	h := &GameHandler{
		store:   store,
		catalog: catalog,
		logger:  logger,
		origins: make(map[string]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// checkOrigin accepts non-browser clients (no Origin header), same-host
// pages and anything on the allowlist.
func (h *GameHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if h.origins[strings.ToLower(u.Scheme+"://"+u.Host)] {
		return true
	}
	h.logger.Warn("rejected websocket origin", "origin", origin, "host", r.Host)
	return false
}

// ServeHTTP handles HTTP requests for games
// Routes:
// POST /v1/games                 - Start a new game
// GET  /v1/games/{id}            - Current prompt and possible actions
// POST /v1/games/{id}/step       - Perform one command
// GET  /v1/games/{id}/transcript - Recorded turns (?limit=N)
// GET  /v1/games/{id}/ws         - Play over a WebSocket
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	playerID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid player ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid player ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	var method string
	var handle func(http.ResponseWriter, *http.Request, uuid.UUID)
	switch action {
	case "":
		method, handle = http.MethodGet, h.handleRead
	case "step":
		method, handle = http.MethodPost, h.handleStep
	case "transcript":
		method, handle = http.MethodGet, h.handleTranscript
	case "ws":
		method, handle = http.MethodGet, h.handleSocket
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != method {
		writeError(w, h.logger, http.StatusMethodNotAllowed, fmt.Sprintf("Method not allowed. Only %s is supported.", method))
		return
	}
	if !h.requirePlayer(w, r, playerID) {
		return
	}
	handle(w, r, playerID)
}

// requirePlayer writes a 404 for unknown players and a 500 for storage
// failures. It reports whether the request may continue.
func (h *GameHandler) requirePlayer(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) bool {
	_, err := h.store.FindPlayer(r.Context(), playerID)
	if err == nil {
		return true
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Game not found")
		return false
	}
	logger.WithError(h.logger, err).Error("Failed to load player", "player_id", playerID.String())
	writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game")
	return false
}

func (h *GameHandler) engineFor(playerID uuid.UUID) *engine.Engine {
	opts := []engine.Option{engine.WithLogger(h.logger)}
	if h.observer != nil {
		opts = append(opts, engine.WithObserver(h.observer))
	}
	return engine.New(h.store, playerID, opts...)
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in create game request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Scenario == "" {
		req.Scenario = DefaultScenario
	}

	ctx := r.Context()
	s, err := h.catalog.Get(ctx, req.Scenario)
	if err != nil {
		if errors.Is(err, scenario.ErrNotFound) {
			writeError(w, h.logger, http.StatusBadRequest, "Unknown scenario: "+req.Scenario)
			return
		}
		h.logger.Error("Failed to load scenario", "error", err, "scenario", req.Scenario)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenario")
		return
	}

	playerID, err := s.Build(ctx, h.store, req.UserID)
	if err != nil {
		h.logger.Error("Failed to build game", "error", err, "scenario", req.Scenario)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game")
		return
	}

	resp, err := h.describe(ctx, h.engineFor(playerID))
	if err != nil {
		h.logger.Error("Failed to describe new game", "error", err, "player_id", playerID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game")
		return
	}

	logger.WithPlayer(h.logger, playerID.String()).Info("Game created",
		"scenario", s.Name,
		"user_id", req.UserID)
	writeJSON(w, h.logger, http.StatusCreated, resp)
}

func (h *GameHandler) handleRead(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	resp, err := h.describe(r.Context(), h.engineFor(playerID))
	if err != nil {
		logger.WithPlayer(h.logger, playerID.String()).Error("Failed to describe game", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleStep(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in step request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	resp, err := h.play(r.Context(), playerID, req.Command)
	if errors.Is(err, errStepInProgress) {
		writeError(w, h.logger, http.StatusConflict, "Another command is in progress for this game")
		return
	}
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to perform command")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleTranscript(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	if h.transcript == nil {
		writeError(w, h.logger, http.StatusNotImplemented, "Transcripts are not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.transcript.Recent(r.Context(), playerID, limit)
	if err != nil {
		logger.WithPlayer(h.logger, playerID.String()).Error("Failed to read transcript", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read transcript")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, TranscriptResponse{PlayerID: playerID, Entries: entries})
}

// play performs one command and records it in the transcript.
func (h *GameHandler) play(ctx context.Context, playerID uuid.UUID, command string) (StepResponse, error) {
	log := logger.WithPlayer(h.logger, playerID.String())
	if h.locker != nil {
		release, err := h.locker.Acquire(ctx, playerID)
		if errors.Is(err, gamelock.ErrLocked) {
			log.Warn("Command rejected while game is locked", "command", command)
			return StepResponse{}, errStepInProgress
		}
		if err != nil {
			log.Error("Failed to lock game", "error", err)
			return StepResponse{}, err
		}
		defer release()
	}
	e := h.engineFor(playerID)

	reply, err := e.Step(ctx, command)
	if err != nil {
		log.Error("Failed to perform command", "error", err, "command", command)
		return StepResponse{}, err
	}
	done, err := e.GameIsOver(ctx)
	if err != nil {
		log.Error("Failed to check game over", "error", err)
		return StepResponse{}, err
	}

	if h.transcript != nil {
		if err := h.transcript.Append(ctx, playerID, command, reply); err != nil {
			log.Warn("Failed to record transcript", "error", err)
		}
	}
	return StepResponse{Done: done, Prompt: reply}, nil
}

func (h *GameHandler) describe(ctx context.Context, e *engine.Engine) (GameResponse, error) {
	prompt, err := e.Prompt(ctx)
	if err != nil {
		return GameResponse{}, err
	}
	actions, err := e.PossibleActions(ctx)
	if err != nil {
		return GameResponse{}, err
	}
	done, err := e.GameIsOver(ctx)
	if err != nil {
		return GameResponse{}, err
	}
	return GameResponse{
		PlayerID: e.PlayerID(),
		Prompt:   prompt,
		Actions:  actions,
		Done:     done,
	}, nil
}
