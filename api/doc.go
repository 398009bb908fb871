// Package api provides the HTTP REST API for the lawnmower route planner.
//
// Endpoints:
//
// Runs:
//   - POST /api/runs - Start a search (body: service.RunRequest; ?yard=, ?strategy=, ?wait=true)
//   - GET /api/runs - List runs, newest first (?status=, ?limit=)
//   - GET /api/runs/{id} - Get a run with its route once finished
//   - DELETE /api/runs/{id} - Stop and remove a run
//   - POST /api/runs/{id}/cancel - Stop a running search
//   - GET /api/runs/{id}/steps - Page through a finished route (?page=, ?limit=, ?order=asc|desc)
//
// Routes:
//   - POST /api/verify - Check a path or move list against a yard
//
// Yards:
//   - GET /api/yards - List yard configurations
//   - POST /api/yards - Save a yard (yard_id optional, derived from name)
//   - GET /api/yards/{name} - Get a yard configuration
//
// Other:
//   - GET /api/health - Liveness probe
//   - GET /ws?run=<id> - WebSocket stream of run events; omit run to follow all runs
//
// POST /api/runs returns 201 when the run already finished (wait=true) and
// 202 while the search is still going.
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the planner error:
// 404 for unknown runs or yards, 400 for invalid requests, 409 when a run is
// already finished or has no route yet, 500 otherwise.
//
//	{
//	  "error": "run not found",
//	  "code": 404
//	}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	server := api.NewServer(planner, hub)
//	http.ListenAndServe(":8080", server)
package api
