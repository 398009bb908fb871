package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/lawnmower/api"
	"github.com/wricardo/lawnmower/mower/config"
	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/runs"
	"github.com/wricardo/lawnmower/mower/search"
	"github.com/wricardo/lawnmower/mower/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "run-1", "status": "done"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/runs/run-1", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "run-1" {
		t.Errorf("Expected id run-1, got %v", response["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api/health", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "run not found", "code": 404})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api/runs/x", nil, nil)
	if err == nil || err.Error() != "run not found" {
		t.Errorf("Expected 'run not found', got %v", err)
	}
}

func TestClient_handleSolveYard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/runs" {
			t.Errorf("Expected POST /api/runs, got %s %s", r.Method, r.URL.Path)
		}

		var req service.RunRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.YardID != "strip" || req.Strategy != "state" || !req.Wait || req.MaxExpansions != 500 {
			t.Errorf("Unexpected request: %+v", req)
		}

		resp := service.RunInfo{
			ID:         "run-42",
			YardID:     "strip",
			Rows:       1,
			Cols:       3,
			Targets:    1,
			Strategy:   search.StrategyState,
			Status:     service.StatusDone,
			Found:      true,
			Steps:      4,
			Directions: []string{"right", "right", "left", "left"},
			Overlay:    []string{"O#*"},
			Stats:      &service.SearchStats{Expanded: 5, Pushed: 7, MaxFrontier: 3},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleSolveYard(context.Background(), callRequest("solve_yard", map[string]interface{}{
		"yard_id":        "strip",
		"strategy":       "state",
		"max_expansions": float64(500),
	}))
	if err != nil {
		t.Fatalf("handleSolveYard failed: %v", err)
	}

	text := resultText(t, result)
	for _, expected := range []string{"run-42", "Route: 4 steps", "right, right, left, left", "O#*", "5 expanded"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in result, got: %s", expected, text)
		}
	}
}

func TestClient_handleSolveYard_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "yard configuration not found: 'nope'"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleSolveYard(context.Background(), callRequest("solve_yard", map[string]interface{}{"yard_id": "nope"}))
	if err != nil {
		t.Fatalf("Tool errors should be results, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result")
	}
}

func TestClient_requiredArguments(t *testing.T) {
	client := NewClient("http://localhost:1")
	ctx := context.Background()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_run":       client.handleGetRun,
		"cancel_run":    client.handleCancelRun,
		"run_steps":     client.handleRunSteps,
		"verify_route":  client.handleVerifyRoute,
		"describe_cell": client.handleDescribeCell,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(ctx, callRequest(name, nil))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !result.IsError {
				t.Errorf("Expected an error result for missing arguments, got %s", resultText(t, result))
			}
		})
	}
}

func TestFormatRunInfo_NoRoute(t *testing.T) {
	text := formatRunInfo(&service.RunInfo{
		ID:     "run-1",
		YardID: "corridor",
		Status: service.StatusDone,
		Error:  search.ErrNoRoute.Error(),
		Stats:  &service.SearchStats{Expanded: 3},
	})
	if !strings.Contains(text, "No route found") {
		t.Errorf("Expected no-route message, got: %s", text)
	}
}

func TestFormatRunInfo_Running(t *testing.T) {
	text := formatRunInfo(&service.RunInfo{
		ID:       "run-1",
		Status:   service.StatusRunning,
		Progress: &search.Progress{Expanded: 1500, Frontier: 40},
	})
	if !strings.Contains(text, "1500 expanded") || !strings.Contains(text, "still going") {
		t.Errorf("Unexpected running output: %s", text)
	}
}

func TestFormatReport(t *testing.T) {
	valid := formatReport(&route.Report{Valid: true, Closed: true, Steps: 4, Covered: 2, Total: 2})
	if !strings.Contains(valid, "Route is valid") {
		t.Errorf("Unexpected valid report: %s", valid)
	}

	invalid := formatReport(&route.Report{
		Steps:    2,
		Total:    2,
		Covered:  1,
		Problems: []string{"route misses 1 target(s)"},
		Missing:  []grid.Position{{Row: 1, Col: 0}},
	})
	for _, expected := range []string{"NOT valid", "misses", "(1,0)"} {
		if !strings.Contains(invalid, expected) {
			t.Errorf("Expected %q in report, got: %s", expected, invalid)
		}
	}
}

func TestFormatSteps(t *testing.T) {
	text := formatSteps(&service.StepsResponse{
		RunID: "run-1",
		Steps: []service.StepInfo{
			{Idx: 0, Position: grid.Origin},
			{Idx: 1, Position: grid.Position{Row: 0, Col: 1}, Dir: "right", Target: true, FirstVisit: true, Collected: 1},
		},
		TotalSteps: 3,
		Page:       1,
		TotalPages: 2,
		HasNext:    true,
	})
	for _, expected := range []string{"page 1/2", "start", "right", "[grass]", "collected=1", "page 2"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in steps, got: %s", expected, text)
		}
	}
}

func TestClient_handlePlannerInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handlePlannerInstructions(context.Background(), callRequest("planner_instructions", nil))
	if err != nil {
		t.Fatalf("handlePlannerInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, expected := range []string{"OBJECTIVE:", "YARD LEGEND:", "STRATEGIES:", "WHEN NO ROUTE IS FOUND:", "candidate", "state"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in instructions", expected)
		}
	}
}

// newPlannerAPI serves the real REST API over a temp yard directory
func newPlannerAPI(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	yard := `{"name": "Backyard", "layout": ["..", ".+"]}`
	if err := os.WriteFile(filepath.Join(dir, "backyard.json"), []byte(yard), 0644); err != nil {
		t.Fatal(err)
	}

	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("config.NewManager failed: %v", err)
	}
	planner := service.NewPlannerService(runs.NewManager(), configs)
	server := httptest.NewServer(api.NewServer(planner, nil))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Integration(t *testing.T) {
	server := newPlannerAPI(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	result, err := client.handleListYards(ctx, callRequest("list_yards", nil))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, result); !strings.Contains(text, "backyard: Backyard (2x2, 1 grass cells)") {
		t.Errorf("Unexpected yard list: %s", text)
	}

	result, err = client.handleSolveYard(ctx, callRequest("solve_yard", map[string]interface{}{"yard_id": "backyard"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if result.IsError || !strings.Contains(text, "Route: 4 steps") {
		t.Fatalf("Unexpected solve result: %s", text)
	}

	result, err = client.handleVerifyRoute(ctx, callRequest("verify_route", map[string]interface{}{
		"yard_id": "backyard",
		"moves":   []interface{}{"right", "down", "left", "up"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, result); !strings.Contains(text, "Route is valid") {
		t.Errorf("Expected valid route, got: %s", text)
	}

	result, err = client.handleVerifyRoute(ctx, callRequest("verify_route", map[string]interface{}{
		"yard_id": "backyard",
		"moves":   []interface{}{"right", "left"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, result); !strings.Contains(text, "NOT valid") {
		t.Errorf("Expected invalid route, got: %s", text)
	}

	result, err = client.handleDescribeCell(ctx, callRequest("describe_cell", map[string]interface{}{
		"yard_id": "backyard",
		"row":     float64(1),
		"col":     float64(1),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, result); !strings.Contains(text, "Marker: target") || !strings.Contains(text, "Distance from (0,0): 2") {
		t.Errorf("Unexpected cell description: %s", text)
	}

	result, err = client.handleDescribeCell(ctx, callRequest("describe_cell", map[string]interface{}{
		"layout": []interface{}{".+"},
		"row":    float64(3),
		"col":    float64(0),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("Expected out of bounds error")
	}
}
