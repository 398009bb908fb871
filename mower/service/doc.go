// Package service provides the business logic layer of the lawnmower
// route planner.
//
// PlannerService is the main interface. It turns yard configurations into
// runs, executes the collector search for each run in its own goroutine, and
// exposes the results to the transports (HTTP, WebSocket, MCP):
//
//   - CreateRun resolves the yard (by ID, inline config or bare layout),
//     stores a pending run and starts the search. Wait blocks until it ends.
//   - CancelRun and DeleteRun stop a search through its context.
//   - GetRunSteps pages through the route with per-step move and target flags.
//   - VerifyRoute checks any route, for example one an agent came up with.
//
// RunStore and ConfigManager are implemented by the runs and config packages.
// A Notifier, usually the WebSocket hub, receives run_started, run_progress and
// run_finished events.
//
// Usage:
//
//	runStore := runs.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	planner := service.NewPlannerService(runStore, configMgr, service.WithNotifier(hub))
//
//	info, err := planner.CreateRun(ctx, service.RunRequest{YardID: "backyard", Wait: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(info.Directions)
package service
