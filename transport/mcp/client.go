package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// solve_yard waits for the search to finish
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Lawnmower Route Planner",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Lawnmower Route Planner - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Plan a closed route for a mower that starts at the top-left cell (0,0),
steps on every grass cell (+) and returns to (0,0). Moves are up, down,
left and right, one cell at a time.

AVAILABLE TOOLS:
- solve_yard: Plan a route for a saved yard or an inline layout
- get_run: Get a run with its route, directions and overlay
- list_runs: List runs, newest first
- cancel_run: Stop a running search
- run_steps: Page through the steps of a finished route
- list_yards: List saved yards
- verify_route: Check your own move list against a yard
- describe_cell: Inspect one cell of a yard
- planner_instructions: Detailed rules and tips

Coordinates are always (row, col) with row 0 at the top.`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func layoutProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Inline yard rows, '+' for grass and '.' for cut cells (used when yard_id is empty)",
		"items":       map[string]interface{}{"type": "string"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Runs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_yard",
		Description: "Plan a mowing route for a yard and wait for the result",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"yard_id": stringProp("Saved yard to plan for (optional, default yard when empty)"),
				"layout":  layoutProp(),
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy (default candidate)",
					"enum":        []string{"candidate", "shared", "state"},
				},
				"max_expansions": numberProp("Stop the search after this many expansions (0 = unlimited)"),
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Wait for the search to finish (default true)",
				},
			},
		},
	}, c.handleSolveYard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Get a run's status, route, directions and overlay",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": stringProp("Run ID to retrieve"),
			},
			Required: []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List planner runs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": stringProp("Only runs with this status (pending, running, done, failed, cancelled)"),
				"limit":  numberProp("Maximum runs to return"),
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_run",
		Description: "Stop a running search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": stringProp("Run ID to cancel"),
			},
			Required: []string{"run_id"},
		},
	}, c.handleCancelRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_steps",
		Description: "Page through the steps of a finished route",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": stringProp("Run ID"),
				"page":   numberProp("Page number (default 1)"),
				"limit":  numberProp("Steps per page (default 20, max 100)"),
				"order": map[string]interface{}{
					"type":        "string",
					"description": "Step order",
					"enum":        []string{"asc", "desc"},
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleRunSteps)

	// Yards
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_yards",
		Description: "List saved yard configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListYards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "verify_route",
		Description: "Check a move list against a yard: closed at (0,0), in bounds, covers every grass cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"yard_id": stringProp("Saved yard (optional, default yard when empty)"),
				"layout":  layoutProp(),
				"moves": map[string]interface{}{
					"type":        "array",
					"description": "Moves starting from (0,0)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
				},
			},
			Required: []string{"moves"},
		},
	}, c.handleVerifyRoute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell of a yard: marker, neighbors, distance from (0,0), and when run_id is given, the route steps that visit it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"yard_id": stringProp("Saved yard (optional, default yard when empty)"),
				"layout":  layoutProp(),
				"row":     numberProp("Row (0 is the top row)"),
				"col":     numberProp("Column (0 is the left column)"),
				"run_id":  stringProp("Run whose route should be checked (optional)"),
			},
			Required: []string{"row", "col"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "planner_instructions",
		Description: "Get detailed planner rules, strategies and tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePlannerInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers. MCP numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func argString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func argStrings(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Run Handlers

func (c *Client) handleSolveYard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.RunRequest{
		YardID:   argString(args, "yard_id"),
		Layout:   argStrings(args, "layout"),
		Strategy: argString(args, "strategy"),
		Wait:     true,
	}
	if n, ok := argInt(args, "max_expansions"); ok {
		req.MaxExpansions = n
	}
	if wait, ok := args["wait"].(bool); ok {
		req.Wait = wait
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", "/api/runs", req, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := argString(arguments(request), "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "GET", "/api/runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if status := argString(args, "status"); status != "" {
		params.Set("status", status)
	}
	if limit, ok := argInt(args, "limit"); ok && limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/runs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response struct {
		Count int                `json:"count"`
		Total int                `json:"total"`
		Runs  []*service.RunInfo `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Runs) == 0 {
		return mcp.NewToolResultText("No runs."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Runs (%d of %d):\n", response.Count, response.Total)
	for _, run := range response.Runs {
		fmt.Fprintf(&sb, "- %s yard=%s status=%s", run.ID, yardLabel(run), run.Status)
		if run.Status == service.StatusDone {
			fmt.Fprintf(&sb, " found=%v steps=%d", run.Found, run.Steps)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleCancelRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := argString(arguments(request), "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", "/api/runs/"+url.PathEscape(runID)+"/cancel", nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Run %s is now %s.", run.ID, run.Status)), nil
}

func (c *Client) handleRunSteps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	runID := argString(args, "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	params := url.Values{}
	if page, ok := argInt(args, "page"); ok && page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := argInt(args, "limit"); ok && limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := argString(args, "order"); order != "" {
		params.Set("order", order)
	}
	path := "/api/runs/" + url.PathEscape(runID) + "/steps"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var steps service.StepsResponse
	if err := c.apiCall(ctx, "GET", path, nil, &steps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSteps(&steps)), nil
}

// Yard Handlers

func (c *Client) handleListYards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var yards []*service.YardInfo
	if err := c.apiCall(ctx, "GET", "/api/yards", nil, &yards); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(yards) == 0 {
		return mcp.NewToolResultText("No saved yards."), nil
	}

	var sb strings.Builder
	sb.WriteString("Available yards:\n")
	for _, y := range yards {
		fmt.Fprintf(&sb, "- %s: %s (%dx%d, %d grass cells)", y.YardID, y.Name, y.Rows, y.Cols, y.Targets)
		if y.Description != "" {
			fmt.Fprintf(&sb, " - %s", y.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleVerifyRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	moves := argStrings(args, "moves")
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves is required"), nil
	}

	req := service.VerifyRequest{
		YardID: argString(args, "yard_id"),
		Layout: argStrings(args, "layout"),
		Moves:  moves,
	}

	var report route.Report
	if err := c.apiCall(ctx, "POST", "/api/verify", req, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatReport(&report)), nil
}

// loadYard returns the yard named by yard_id, an inline layout, or the default yard
func (c *Client) loadYard(ctx context.Context, args map[string]interface{}) (*grid.YardConfig, error) {
	if layout := argStrings(args, "layout"); len(layout) > 0 && argString(args, "yard_id") == "" {
		return &grid.YardConfig{Name: "inline", Layout: layout}, nil
	}

	yardID := argString(args, "yard_id")
	if yardID == "" {
		var yards []*service.YardInfo
		if err := c.apiCall(ctx, "GET", "/api/yards", nil, &yards); err != nil {
			return nil, err
		}
		if len(yards) == 0 {
			return nil, fmt.Errorf("no yard_id given and no saved yards")
		}
		yardID = yards[0].YardID
		for _, y := range yards {
			if y.YardID == "backyard" {
				yardID = y.YardID
			}
		}
	}

	var yard grid.YardConfig
	if err := c.apiCall(ctx, "GET", "/api/yards/"+url.PathEscape(yardID), nil, &yard); err != nil {
		return nil, err
	}
	return &yard, nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	row, okRow := argInt(args, "row")
	col, okCol := argInt(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	yard, err := c.loadYard(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := yard.Grid()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := grid.Position{Row: row, Col: col}
	if !g.InBounds(p) {
		return mcp.NewToolResultError(fmt.Sprintf("Cell %s is out of bounds. Yard is %dx%d (rows 0-%d, cols 0-%d)",
			p, g.Rows(), g.Cols(), g.Rows()-1, g.Cols()-1)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cell %s in %s\n", p, yard.Name)
	fmt.Fprintf(&sb, "Marker: %s (%q)\n", g.At(p), string([]rune(yard.Layout[row])[col]))
	if p == grid.Origin {
		sb.WriteString("This is the start and end of every route.\n")
	}
	fmt.Fprintf(&sb, "Distance from (0,0): %d\n", grid.Manhattan(grid.Origin, p))

	neighbors := g.Neighbors(p)
	sb.WriteString("Neighbors:")
	for _, d := range grid.Directions {
		n := p.Step(d)
		if !g.InBounds(n) {
			continue
		}
		fmt.Fprintf(&sb, " %s=%s", d.Name, g.At(n))
	}
	sb.WriteString("\n")
	if g.IsTarget(p) && len(neighbors) == 1 && p != grid.Origin {
		sb.WriteString("Dead end: a route must enter and leave through the same neighbor.\n")
	}

	if runID := argString(args, "run_id"); runID != "" {
		var run service.RunInfo
		if err := c.apiCall(ctx, "GET", "/api/runs/"+url.PathEscape(runID), nil, &run); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var visits []string
		for i, step := range run.Path {
			if step == p {
				visits = append(visits, fmt.Sprint(i))
			}
		}
		switch {
		case len(run.Path) == 0:
			fmt.Fprintf(&sb, "Run %s has no route yet (status %s).\n", run.ID, run.Status)
		case len(visits) == 0:
			fmt.Fprintf(&sb, "Run %s does not visit this cell.\n", run.ID)
		default:
			fmt.Fprintf(&sb, "Run %s visits this cell at step %s.\n", run.ID, strings.Join(visits, ", "))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handlePlannerInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Lawnmower Route Planner - Complete Instructions

OBJECTIVE:
Find a closed route that starts at (0,0), steps on every grass cell and
returns to (0,0). The planner reports the shortest such route it finds.

YARD LEGEND:
+ = grass (must be visited)
. = already cut (may be crossed)
- = already cut (same as .)
Yards may declare their own legend, for example {"G": "grass"}.

COORDINATES:
Positions are (row, col). Row 0 is the top row, col 0 the left column.
up decreases row, down increases row, left decreases col, right increases col.

ROUTE OVERLAY (get_run):
O = origin
* = grass cell on the route
# = cut cell on the route
+ = grass cell the route missed
. = cut cell off the route

STRATEGIES:
- candidate (default): each partial route carries its own visited cells and
  never steps on a cell twice, except to return to (0,0) at the end.
- shared: one visited set for the whole search. Fast, but it can miss routes
  that need to pass near an earlier branch.
- state: searches (cell, grass collected) states and may revisit cells, so it
  solves yards where the route must double back, such as corridors.

WHEN NO ROUTE IS FOUND:
The run finishes with found=false and the route [(0,0)]. Common causes:
- A grass cell at the end of a corridor. Without revisits the mower cannot
  come back out. Try strategy "state".
- max_expansions was too small. Raise it or set 0.

TIPS:
1. Use list_yards to find a yard, then solve_yard with its yard_id.
2. For quick experiments pass layout as an array of rows.
3. Use describe_cell to check a cell's marker before reasoning about it.
4. verify_route checks your own move list and lists every problem it finds.
5. run_steps pages through long routes; each step shows the grass collected so far.

Happy mowing!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func yardLabel(run *service.RunInfo) string {
	if run.YardID != "" {
		return run.YardID
	}
	return run.YardName
}

func formatRunInfo(run *service.RunInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run: %s\n", run.ID)
	fmt.Fprintf(&sb, "Yard: %s (%dx%d, %d grass cells)\n", yardLabel(run), run.Rows, run.Cols, run.Targets)
	fmt.Fprintf(&sb, "Strategy: %s\n", run.Strategy)
	fmt.Fprintf(&sb, "Status: %s\n", run.Status)

	if run.Progress != nil && !run.Status.Finished() {
		fmt.Fprintf(&sb, "Progress: %d expanded, frontier %d\n", run.Progress.Expanded, run.Progress.Frontier)
	}
	if run.Error != "" {
		fmt.Fprintf(&sb, "Note: %s\n", run.Error)
	}
	if !run.Status.Finished() {
		sb.WriteString("The search is still going. Call get_run again later.\n")
		return sb.String()
	}

	if run.Stats != nil {
		fmt.Fprintf(&sb, "Search: %d expanded, %d pushed, max frontier %d", run.Stats.Expanded, run.Stats.Pushed, run.Stats.MaxFrontier)
		if run.DurationMS > 0 {
			fmt.Fprintf(&sb, ", %dms", run.DurationMS)
		}
		sb.WriteString("\n")
	}

	if !run.Found {
		sb.WriteString("No route found.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Route: %d steps\n", run.Steps)
	if len(run.Directions) > 0 {
		fmt.Fprintf(&sb, "Moves: %s\n", strings.Join(run.Directions, ", "))
	}
	if len(run.Overlay) > 0 {
		sb.WriteString("\n")
		for _, line := range run.Overlay {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatSteps(steps *service.StepsResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s: page %d/%d (%d steps total)\n", steps.RunID, steps.Page, steps.TotalPages, steps.TotalSteps)
	for _, step := range steps.Steps {
		dir := step.Dir
		if dir == "" {
			dir = "start"
		}
		fmt.Fprintf(&sb, "%3d. %-5s -> %s", step.Idx, dir, step.Position)
		if step.FirstVisit {
			sb.WriteString(" [grass]")
		}
		fmt.Fprintf(&sb, " collected=%d\n", step.Collected)
	}
	if steps.HasNext {
		fmt.Fprintf(&sb, "More steps on page %d.\n", steps.Page+1)
	}
	return sb.String()
}

func formatReport(report *route.Report) string {
	var sb strings.Builder
	if report.Valid {
		fmt.Fprintf(&sb, "Route is valid: %d steps, all %d grass cells covered.\n", report.Steps, report.Total)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Route is NOT valid: %d steps, %d of %d grass cells covered, closed=%v\n",
		report.Steps, report.Covered, report.Total, report.Closed)
	for _, problem := range report.Problems {
		fmt.Fprintf(&sb, "- %s\n", problem)
	}
	if len(report.Missing) > 0 {
		missing := make([]string, 0, len(report.Missing))
		for _, p := range report.Missing {
			missing = append(missing, p.String())
		}
		fmt.Fprintf(&sb, "Missing: %s\n", strings.Join(missing, " "))
	}
	return sb.String()
}
