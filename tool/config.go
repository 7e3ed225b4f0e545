package tool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueType classifies how an input is entered and an output is shown.
type ValueType string

const (
	TypeCurrency   ValueType = "currency"
	TypeNumber     ValueType = "number"
	TypePercentage ValueType = "percentage"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeCurrency, TypeNumber, TypePercentage:
		return true
	}
	return false
}

// Input is a named numeric field the learner fills in.
type Input struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Type        ValueType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Default     *float64  `json:"default,omitempty"`
}

// Output is a named result computed from a formula.
type Output struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Formula   string    `json:"formula"`
	Format    ValueType `json:"format"`
	Highlight bool      `json:"highlight,omitempty"`
}

// Config is one Interactive Tool as authored by content editors.
type Config struct {
	ToolType    string   `json:"tool_type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Inputs      []Input  `json:"inputs"`
	Outputs     []Output `json:"outputs"`
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := c
	out.Inputs = make([]Input, len(c.Inputs))
	for i, in := range c.Inputs {
		if in.Default != nil {
			v := *in.Default
			in.Default = &v
		}
		out.Inputs[i] = in
	}
	out.Outputs = append([]Output(nil), c.Outputs...)
	return out
}

// LoadConfig reads a tool configuration from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return Config{}, fmt.Errorf("reading tool config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes a tool configuration. YAML is selected by the path
// extension; everything else is treated as JSON.
func ParseConfig(data []byte, path string) (Config, error) {
	jsonData, err := toJSON(data, path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing tool config: %w", err)
	}
	return cfg, nil
}

func toJSON(data []byte, path string) ([]byte, error) {
	if !isYAML(path) {
		return data, nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting yaml to json: %w", err)
	}
	return out, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
