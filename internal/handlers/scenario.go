package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/scenario"
)

// ScenarioCatalog lists and loads scenario files.
type ScenarioCatalog interface {
	List(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, filename string) (*scenario.Scenario, error)
}

type ScenarioListResponse struct {
	Scenarios map[string]string `json:"scenarios"` // name -> filename
}

type ScenarioHandler struct {
	log     *slog.Logger
	catalog ScenarioCatalog
}

func NewScenarioHandler(log *slog.Logger, catalog ScenarioCatalog) *ScenarioHandler {
	return &ScenarioHandler{
		log:     log,
		catalog: catalog,
	}
}

// ServeHTTP handles
// GET /v1/scenarios            - list scenarios by name
// GET /v1/scenarios/{filename} - a single scenario definition
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, filename)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.catalog.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	writeJSON(w, h.log, http.StatusOK, ScenarioListResponse{Scenarios: scenarios})
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	s, err := h.catalog.Get(r.Context(), filename)
	if err != nil {
		if errors.Is(err, scenario.ErrNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Scenario not found")
			return
		}
		h.log.Error("Failed to get scenario", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve scenario")
		return
	}
	writeJSON(w, h.log, http.StatusOK, s)
}
