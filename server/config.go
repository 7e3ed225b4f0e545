package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsacademy/toolcalc/tool"
)

const (
	projectConfigName = "toolcalc.yaml"
	homeConfigName    = "config.yaml"
)

// FileConfig is the shape of toolcalc.yaml.
type FileConfig struct {
	Server ServerSettings `yaml:"server"`
	Tools  []SeedTool     `yaml:"tools"`
}

// ServerSettings holds serve defaults. Command-line flags win over them.
type ServerSettings struct {
	Host         string `yaml:"host,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	CORSOrigin   string `yaml:"cors_origin,omitempty"`
	SQLitePath   string `yaml:"sqlite_path,omitempty"`
	LintCron     string `yaml:"lint_cron,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// SeedTool declares a tool to load into the store at startup, either from
// a config file or inline.
type SeedTool struct {
	ID       string    `yaml:"id"`
	LessonID string    `yaml:"lesson_id,omitempty"`
	Name     string    `yaml:"name,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Config   yaml.Node `yaml:"config,omitempty"`
}

// DiscoverConfigPath resolves the config location with first-match semantics.
func DiscoverConfigPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverConfigPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverConfigPathFrom is a testable variant of DiscoverConfigPath.
func DiscoverConfigPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, ".toolcalc", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// An explicit path that does not exist is an error.
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// LoadFileConfig reads and parses a toolcalc.yaml file.
func LoadFileConfig(path string) (FileConfig, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// SeedTools creates every declared tool that is not already stored. File
// paths are resolved relative to baseDir. A seed with error diagnostics
// aborts seeding. It returns the number of tools created.
func SeedTools(ctx context.Context, store tool.Store, seeds []SeedTool, baseDir string, logger *slog.Logger) (int, error) {
	if store == nil {
		return 0, errors.New("server: tool store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	created := 0
	for i, seed := range seeds {
		id := strings.TrimSpace(seed.ID)
		if id == "" {
			return created, fmt.Errorf("tools[%d]: id is required", i)
		}
		cfg, err := seedConfig(seed, baseDir)
		if err != nil {
			return created, fmt.Errorf("tools[%d] %q: %w", i, id, err)
		}
		diags := tool.Validate(cfg)
		if tool.HasErrors(diags) {
			return created, fmt.Errorf("tools[%d] %q: %s", i, id, diagMessages(tool.Errors(diags))[0])
		}

		name := seed.Name
		if name == "" {
			name = cfg.Title
		}
		now := time.Now().UTC()
		err = store.Create(ctx, tool.Record{
			ID:        id,
			LessonID:  seed.LessonID,
			Name:      name,
			Config:    cfg,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, tool.ErrToolExists) {
			logger.Debug("seed tool already stored", "id", id)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("tools[%d] %q: %w", i, id, err)
		}
		logger.Info("seeded tool", "id", id, "lesson_id", seed.LessonID, "warnings", len(diags))
		created++
	}
	return created, nil
}

func seedConfig(seed SeedTool, baseDir string) (tool.Config, error) {
	hasInline := !seed.Config.IsZero()
	switch {
	case seed.File != "" && hasInline:
		return tool.Config{}, errors.New("set either file or config, not both")
	case seed.File != "":
		path := seed.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return tool.LoadConfig(path)
	case hasInline:
		data, err := yaml.Marshal(&seed.Config)
		if err != nil {
			return tool.Config{}, fmt.Errorf("encoding inline config: %w", err)
		}
		return tool.ParseConfig(data, "inline.yaml")
	default:
		return tool.Config{}, errors.New("file or config is required")
	}
}
