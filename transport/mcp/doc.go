// Package mcp exposes the route planner to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so the same tools work whether the MCP server runs inside the HTTP
// server (/mcp) or as a separate stdio process pointed at it.
//
// MCP Tools:
//   - solve_yard: Plan a route for a saved yard or inline layout
//   - get_run: Run status, route, moves and overlay
//   - list_runs: Runs, newest first
//   - cancel_run: Stop a running search
//   - run_steps: Paginated route steps
//   - list_yards: Saved yard configurations
//   - verify_route: Check a move list against a yard
//   - describe_cell: Marker, neighbors and route visits for one cell
//   - planner_instructions: Rules and tips
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
