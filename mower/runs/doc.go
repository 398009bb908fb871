// Package runs stores planner runs.
//
// Manager keeps runs in memory and implements service.RunStore. With a
// RunPersistence attached every change is written through, and runs evicted
// by CleanupExpiredRuns are reloaded on demand. FilePersistence stores each
// run as runs/<id>.json.
package runs
