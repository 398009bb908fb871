// Package websocket streams planner run events to browser and agent clients.
//
// A central Hub owns all connections. Clients connect with ?run=<id> to follow
// one run, or without it to follow every run. The planner publishes through
// BroadcastEvent, which queues the event and returns immediately so a slow
// client never stalls a search.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"run_id": "...", "event": "run_progress", "data": {...}, "timestamp": "..."}
//
// where event is run_started, run_progress or run_finished. Incoming messages
// are read only to detect disconnects.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	planner := service.NewPlannerService(runStore, configMgr, service.WithNotifier(hub))
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("run"))
//	})
package websocket
