// Package config provides yard configuration management.
//
// Yards are stored in the configs directory as JSON or YAML files. The file
// name without extension is the yard ID used by runs and the API; when both
// backyard.json and backyard.yaml exist the JSON file wins.
//
// A yard file defines:
//   - name and description
//   - layout: one string per row, '+' marks a target, '.' plain ground
//   - legend: optional extra characters mapped to "target" or "plain"
//   - strategy and max_expansions: optional search defaults
//
// Example (YAML):
//
//	name: Strip
//	layout:
//	  - "..++"
//	  - "...."
//	strategy: state
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	yard, err := manager.LoadConfig("backyard")
//
// GetDefault returns the backyard yard when present, otherwise the first
// valid yard, otherwise a built-in 3x3 yard.
package config
