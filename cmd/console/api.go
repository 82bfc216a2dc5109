package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
)

// apiClient talks to the adventure engine HTTP API.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func (c *apiClient) healthy() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a request and decodes a JSON reply into out when the status
// matches want. Error bodies are decoded as handlers.ErrorResponse.
func (c *apiClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, errorResp.Error)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// listScenarios returns scenario names sorted alphabetically and the
// name -> filename map.
func (c *apiClient) listScenarios() ([]string, map[string]string, error) {
	var resp handlers.ScenarioListResponse
	if err := c.do(http.MethodGet, "/v1/scenarios", nil, http.StatusOK, &resp); err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(resp.Scenarios))
	for name := range resp.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, resp.Scenarios, nil
}

func (c *apiClient) createGame(scenarioFile, userID string) (*handlers.GameResponse, error) {
	var resp handlers.GameResponse
	req := handlers.CreateGameRequest{Scenario: scenarioFile, UserID: userID}
	if err := c.do(http.MethodPost, "/v1/games", req, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) getGame(playerID uuid.UUID) (*handlers.GameResponse, error) {
	var resp handlers.GameResponse
	if err := c.do(http.MethodGet, "/v1/games/"+playerID.String(), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) step(playerID uuid.UUID, command string) (*handlers.StepResponse, error) {
	var resp handlers.StepResponse
	path := "/v1/games/" + playerID.String() + "/step"
	if err := c.do(http.MethodPost, path, handlers.StepRequest{Command: command}, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) transcript(playerID uuid.UUID, limit int) (*handlers.TranscriptResponse, error) {
	var resp handlers.TranscriptResponse
	path := "/v1/games/" + playerID.String() + "/transcript?limit=" + strconv.Itoa(limit)
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
