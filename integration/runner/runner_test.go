package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	catalog := scenario.NewCatalog(scenario.Builtin(), log)
	games := handlers.NewGameHandler(log, storage.NewMockStorage(), catalog)

	mux := http.NewServeMux()
	mux.Handle("/v1/games", games)
	mux.Handle("/v1/games/", games)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeCase(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunner_BundledCases(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL + "/")
	assert.Equal(t, srv.URL, r.BaseURL)

	files, err := filepath.Glob(filepath.Join("..", "cases", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		jobs, err := LoadTestSuiteWithExpansion(file, filepath.Join("..", "cases"))
		require.NoError(t, err, file)
		for _, job := range jobs {
			t.Run(job.Name, func(t *testing.T) {
				result, err := r.RunSuite(context.Background(), job.Suite)
				require.NoError(t, err)
				assert.NotEqual(t, "", result.PlayerID.String())
				assert.Len(t, result.Results, len(job.Suite.Steps))
				for _, step := range result.Results {
					assert.True(t, step.Success, step.StepName)
				}
			})
		}
	}
}

func TestRunner_FailedExpectation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	wrong := "the production room"
	suite := TestSuite{
		Name: "wrong",
		Steps: []TestStep{
			{Name: "locked", Command: "exit North", Expect: Expect{Location: &wrong}},
			{Name: "take", Command: "take Drawer Key", Expect: Expect{ResponseContains: []string{"you take the drawer key"}}},
		},
	}

	r := NewRunner(srv.URL)
	result, err := r.RunSuite(ctx, suite)
	require.Error(t, err)
	assert.ErrorContains(t, err, `expected location "the production room", got "the testing room"`)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, "The exit North is locked.", result.Results[0].ResponseText)
	assert.True(t, result.Results[1].Success)

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(ctx, suite)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunner_UnknownScenario(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)
	r.ScenarioOverride = "missing.json"

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "missing", Scenario: "office.yaml"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "returned 400")
}

func TestCheckExpectations(t *testing.T) {
	game := &handlers.GameResponse{
		Prompt:  "You are in the hall.\nExits: Door.",
		Actions: []string{"exit Door", "help"},
	}
	done := true

	assert.NoError(t, checkExpectations(Expect{
		ActionsContain:      []string{"help"},
		ActionsNotContain:   []string{"take Lamp"},
		ResponseNotContains: []string{"locked"},
		ResponseRegex:       `^You go`,
	}, "You go through Door.", game))
	assert.ErrorContains(t, checkExpectations(Expect{Done: &done}, "", game), "expected done to be true")
	assert.ErrorContains(t, checkExpectations(Expect{ActionsContain: []string{"take Lamp"}}, "", game), "take Lamp")
	assert.ErrorContains(t, checkExpectations(Expect{ResponseNotContains: []string{"DOOR"}}, "door", game), "NOT contain")
	assert.ErrorContains(t, checkExpectations(Expect{ResponseRegex: "("}, "", game), "invalid regex")
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "the keeper's cottage", Location("You are in the keeper's cottage.\nExits: Beach."))
	assert.Equal(t, "the hall", Location("You are in the hall."))
	assert.Equal(t, "", Location("The exit North is locked."))
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "a.json", `{"name": "A", "steps": [{"command": "help"}]}`)
	writeCase(t, dir, "b.json", `{"name": "B", "scenario": "lighthouse.json", "steps": [{"command": "inventory"}]}`)
	writeCase(t, dir, "inner.json", `{"name": "Inner", "cases": ["b.json"]}`)
	all := writeCase(t, dir, "all.json", `{"name": "All", "cases": ["a.json", "inner.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(all, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", jobs[0].Name)
	assert.Equal(t, "B", jobs[1].Name)
	assert.Equal(t, "lighthouse.json", jobs[1].Suite.Scenario)
	assert.Equal(t, filepath.Join(dir, "b.json"), jobs[1].CaseFile)

	loop := writeCase(t, dir, "loop.json", `{"name": "Loop", "cases": ["loop.json"]}`)
	_, err = LoadTestSuiteWithExpansion(loop, dir)
	assert.ErrorContains(t, err, "cycle")

	broken := writeCase(t, dir, "broken.json", `{"name":`)
	_, err = LoadTestSuite(broken)
	assert.ErrorContains(t, err, "failed to parse JSON")

	_, err = LoadTestSuiteWithExpansion(writeCase(t, dir, "dangling.json", `{"name": "D", "cases": ["nope.json"]}`), dir)
	assert.ErrorContains(t, err, "nope.json")
}
