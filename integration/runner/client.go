package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/handlers"
)

// CreateGame starts a new game via POST /v1/games
func CreateGame(ctx context.Context, client *http.Client, baseURL, scenario, userID string) (*handlers.GameResponse, error) {
	var game handlers.GameResponse
	req := handlers.CreateGameRequest{Scenario: scenario, UserID: userID}
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/games", req, http.StatusCreated, &game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &game, nil
}

// GetGame retrieves the current prompt and possible actions
func GetGame(ctx context.Context, client *http.Client, baseURL string, playerID uuid.UUID) (*handlers.GameResponse, error) {
	var game handlers.GameResponse
	url := fmt.Sprintf("%s/v1/games/%s", baseURL, playerID)
	if err := doJSON(ctx, client, http.MethodGet, url, nil, http.StatusOK, &game); err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

// PostStep performs one command and returns the engine's reply
func PostStep(ctx context.Context, client *http.Client, baseURL string, playerID uuid.UUID, command string) (*handlers.StepResponse, error) {
	var step handlers.StepResponse
	url := fmt.Sprintf("%s/v1/games/%s/step", baseURL, playerID)
	if err := doJSON(ctx, client, http.MethodPost, url, handlers.StepRequest{Command: command}, http.StatusOK, &step); err != nil {
		return nil, fmt.Errorf("step %q: %w", command, err)
	}
	return &step, nil
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d (expected %d): %s", method, url, resp.StatusCode, wantStatus, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
