package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeYard(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		opts     SolveOptions
		contains []string
		excludes []string
	}{
		{
			name:    "corners",
			file:    "garden.yml",
			content: "name: Garden\nlayout:\n  - \"G..G\"\n  - \"....\"\n  - \"G..G\"\nlegend:\n  G: grass\n",
			contains: []string{
				"Name: Garden",
				"Grid: 3 x 4",
				"Targets: 4",
				"Farthest target: (2,3) (5 steps away)",
				"Route lower bound: 10 steps",
				"No dead ends",
			},
			excludes: []string{"Search ("},
		},
		{
			name:    "strip needs revisits",
			file:    "strip.yaml",
			content: "name: Strip\nlayout:\n  - \"..+.\"\nstrategy: state\n",
			opts:    SolveOptions{Enabled: true, MaxExpansions: 1000},
			contains: []string{
				"Route lower bound: 4 steps",
				"WARNING: dead ends at (0,0)",
				"Search (state): 4 steps",
				"Route meets the lower bound",
			},
		},
		{
			name:    "strategy override",
			file:    "override.yaml",
			content: "name: Strip\nlayout:\n  - \"..+.\"\nstrategy: state\n",
			opts:    SolveOptions{Enabled: true, Strategy: "candidate", MaxExpansions: 1000},
			contains: []string{
				"Search (candidate): no route",
			},
		},
		{
			name:     "no targets",
			file:     "patio.json",
			content:  `{"name": "Patio", "layout": ["...", "..."]}`,
			opts:     SolveOptions{Enabled: true},
			contains: []string{"Targets: 0", "Nothing to collect", "Search (candidate): 0 steps"},
			excludes: []string{"Route lower bound"},
		},
		{
			name:     "unknown strategy",
			file:     "bad_strategy.json",
			content:  `{"name": "Odd", "layout": [".+"]}`,
			opts:     SolveOptions{Enabled: true, Strategy: "zigzag"},
			contains: []string{"Error: unknown strategy"},
		},
		{
			name:     "ragged layout",
			file:     "ragged.json",
			content:  `{"name": "Ragged", "layout": ["..", "."]}`,
			contains: []string{"Error: invalid configuration"},
			excludes: []string{"Name:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeYard(t, dir, tt.file, tt.content)

			var out bytes.Buffer
			analyzeFile(context.Background(), &out, path, tt.opts)

			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out.String(), unwanted) {
					t.Errorf("Expected output not to contain %q, got:\n%s", unwanted, out.String())
				}
			}
		})
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	var out bytes.Buffer
	analyzeFile(context.Background(), &out, filepath.Join(t.TempDir(), "nope.json"), SolveOptions{})

	if !strings.Contains(out.String(), "Error: failed to read config file") {
		t.Errorf("Expected read error, got:\n%s", out.String())
	}
}

func TestYardFiles(t *testing.T) {
	dir := t.TempDir()
	writeYard(t, dir, "a.json", `{}`)
	writeYard(t, dir, "b.YML", "")
	writeYard(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := yardFiles(dir)
	if err != nil {
		t.Fatalf("yardFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 yard files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.YML" {
		t.Errorf("Unexpected files: %v", files)
	}

	if _, err := yardFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeYard(t, dir, "strip.yaml", "name: Strip\nlayout:\n  - \"..+.\"\nstrategy: state\n")

	t.Run("explicit files", func(t *testing.T) {
		var out bytes.Buffer
		cmd := command()
		cmd.Writer = &out

		if err := cmd.Run(context.Background(), []string{"analyze", "--solve", path}); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !strings.Contains(out.String(), "=== Analyzing "+path+" ===") {
			t.Errorf("Missing header in output:\n%s", out.String())
		}
		if !strings.Contains(out.String(), "Search (state): 4 steps") {
			t.Errorf("Missing search result in output:\n%s", out.String())
		}
	})

	t.Run("config dir", func(t *testing.T) {
		var out bytes.Buffer
		cmd := command()
		cmd.Writer = &out

		if err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", dir}); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !strings.Contains(out.String(), "Name: Strip") {
			t.Errorf("Expected strip.yaml to be analyzed:\n%s", out.String())
		}
	})

	t.Run("missing config dir", func(t *testing.T) {
		cmd := command()
		cmd.Writer = &bytes.Buffer{}

		if err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", filepath.Join(dir, "missing")}); err == nil {
			t.Error("Expected error for missing config dir")
		}
	})
}

func TestRepositoryYards(t *testing.T) {
	files, err := yardFiles(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("yardFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("Expected yard files in configs/")
	}

	for _, file := range files {
		var out bytes.Buffer
		analyzeFile(context.Background(), &out, file, SolveOptions{})
		if strings.Contains(out.String(), "Error:") {
			t.Errorf("%s: %s", file, out.String())
		}
	}
}
