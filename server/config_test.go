package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opsacademy/toolcalc/tool"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDiscoverConfigPathFrom(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	if _, found, err := DiscoverConfigPathFrom("", cwd, home); err != nil || found {
		t.Fatalf("nothing present: found=%v err=%v", found, err)
	}

	homePath := filepath.Join(home, ".toolcalc", "config.yaml")
	writeFile(t, homePath, "server: {}\n")
	path, found, err := DiscoverConfigPathFrom("", cwd, home)
	if err != nil || !found || path != homePath {
		t.Fatalf("home config: path=%q found=%v err=%v", path, found, err)
	}

	projectPath := filepath.Join(cwd, "toolcalc.yaml")
	writeFile(t, projectPath, "server: {}\n")
	path, found, err = DiscoverConfigPathFrom("", cwd, home)
	if err != nil || !found || path != projectPath {
		t.Fatalf("project config should win: path=%q found=%v err=%v", path, found, err)
	}

	if _, _, err := DiscoverConfigPathFrom(filepath.Join(cwd, "missing.yaml"), cwd, home); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

const sampleConfig = `
server:
  port: 9090
  cors_origin: https://lessons.example.com
  lint_cron: "*/30 * * * *"
tools:
  - id: break-even
    lesson_id: pricing-101
    file: tools/break_even.yaml
  - id: margin
    lesson_id: pricing-101
    name: Margin Check
    config:
      tool_type: margin_calculator
      title: Margin Calculator
      inputs:
        - id: price
          label: Price
          type: currency
        - id: cost
          label: Cost
          type: currency
      outputs:
        - id: margin
          label: Margin
          formula: "price > 0 ? (price - cost) / price * 100 : 0"
          format: percentage
`

const breakEvenTool = `
tool_type: break_even
title: Break-even Calculator
inputs:
  - id: fixed
    label: Fixed costs
    type: currency
    default: 5000
  - id: price
    label: Price
    type: currency
  - id: variable
    label: Variable cost
    type: currency
outputs:
  - id: contribution
    label: Contribution
    formula: price - variable
    format: currency
  - id: units
    label: Units to break even
    formula: "contribution > 0 ? fixed / contribution : 0"
    format: number
    highlight: true
`

func TestLoadFileConfigAndSeed(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "toolcalc.yaml")
	writeFile(t, configPath, sampleConfig)
	writeFile(t, filepath.Join(dir, "tools", "break_even.yaml"), breakEvenTool)

	cfg, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.CORSOrigin != "https://lessons.example.com" || cfg.Server.LintCron != "*/30 * * * *" {
		t.Errorf("server settings = %+v", cfg.Server)
	}
	if len(cfg.Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(cfg.Tools))
	}

	store := tool.NewMemoryStore()
	ctx := context.Background()
	created, err := SeedTools(ctx, store, cfg.Tools, dir, nil)
	if err != nil {
		t.Fatalf("SeedTools: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	rec, ok, err := store.Get(ctx, "break-even")
	if err != nil || !ok {
		t.Fatalf("Get(break-even) ok=%v err=%v", ok, err)
	}
	if rec.Name != "Break-even Calculator" || rec.LessonID != "pricing-101" {
		t.Errorf("record = %+v", rec)
	}
	comp := tool.Compute(rec.Config, map[string]string{"price": "50", "variable": "30"})
	if comp.Results[1].Display != "250" {
		t.Errorf("units display = %q, want 250", comp.Results[1].Display)
	}

	margin, ok, _ := store.Get(ctx, "margin")
	if !ok || margin.Name != "Margin Check" || len(margin.Config.Outputs) != 1 {
		t.Fatalf("inline seed = %+v", margin)
	}

	// Seeding again leaves existing records alone.
	created, err = SeedTools(ctx, store, cfg.Tools, dir, nil)
	if err != nil || created != 0 {
		t.Fatalf("reseed created=%d err=%v, want 0/nil", created, err)
	}
}

func TestSeedToolsErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing id",
			yaml:    "tools:\n  - file: a.yaml\n",
			wantErr: "id is required",
		},
		{
			name:    "no source",
			yaml:    "tools:\n  - id: a\n",
			wantErr: "file or config is required",
		},
		{
			name:    "both sources",
			yaml:    "tools:\n  - id: a\n    file: a.yaml\n    config: {title: A}\n",
			wantErr: "not both",
		},
		{
			name:    "missing file",
			yaml:    "tools:\n  - id: a\n    file: nope.yaml\n",
			wantErr: "reading tool config",
		},
		{
			name:    "error diagnostics",
			yaml:    "tools:\n  - id: a\n    config: {title: A, outputs: []}\n",
			wantErr: "TC-010",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			writeFile(t, path, tt.yaml)
			cfg, err := LoadFileConfig(path)
			if err != nil {
				t.Fatalf("LoadFileConfig: %v", err)
			}
			_, err = SeedTools(context.Background(), tool.NewMemoryStore(), cfg.Tools, dir, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolcalc.yaml")
	writeFile(t, path, "server: [unclosed\n")
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
