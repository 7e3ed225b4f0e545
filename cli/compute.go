package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsacademy/toolcalc/tool"
)

// NewComputeCmd creates the "compute" subcommand.
func NewComputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute <tool-file>",
		Short: "Compute a tool's outputs from raw input values",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompute,
	}

	cmd.Flags().StringArrayP("input", "i", nil, "Set an input's raw text (repeatable, e.g. --input revenue=1000)")
	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runCompute(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	inputFlags, _ := cmd.Flags().GetStringArray("input")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadToolFile(filePath)
	if err != nil {
		return err
	}

	raw, err := parseInputFlags(inputFlags)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}
	declared := map[string]bool{}
	for _, in := range cfg.Inputs {
		declared[in.ID] = true
	}
	for id := range raw {
		if !declared[id] {
			slog.Warn("ignoring value for undeclared input", "input", id)
		}
	}

	comp := tool.Compute(cfg, raw)

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(comp); err != nil {
			return exitError(exitRuntime, "writing output: %v", err)
		}
	case "text":
		printComputationText(cmd.OutOrStdout(), cfg, comp)
	default:
		return exitError(exitInputParse, "unknown format %q (want text or json)", format)
	}
	return nil
}

// loadToolFile reads a tool configuration, mapping failures to exit codes.
func loadToolFile(filePath string) (tool.Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tool.Config{}, exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return tool.Config{}, fmt.Errorf("reading file: %w", err)
	}
	cfg, err := tool.LoadConfig(filePath)
	if err != nil {
		return tool.Config{}, exitError(exitInputParse, "%v", err)
	}
	return cfg, nil
}

// parseInputFlags reads id=raw pairs. The raw text is kept as typed; the
// tool's own lenient parsing decides what number it means.
func parseInputFlags(flags []string) (map[string]string, error) {
	raw := make(map[string]string, len(flags))
	for _, kv := range flags {
		id, value, ok := strings.Cut(kv, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --input %q: expected id=value", kv)
		}
		raw[id] = value
	}
	return raw, nil
}

func printComputationText(w io.Writer, cfg tool.Config, comp tool.Computation) {
	if comp.Title != "" {
		fmt.Fprintln(w, comp.Title)
		fmt.Fprintln(w)
	}

	width := 0
	for _, in := range cfg.Inputs {
		width = max(width, len(labelOf(in.Label, in.ID)))
	}
	for _, r := range comp.Results {
		width = max(width, len(labelOf(r.Label, r.ID)))
	}

	for _, in := range cfg.Inputs {
		value := comp.Values[in.ID]
		if value == "" {
			value = tool.Placeholder
		} else {
			value = tool.InputPrefix(in.Type) + value + tool.InputSuffix(in.Type)
		}
		fmt.Fprintf(w, "  %-*s  %s\n", width, labelOf(in.Label, in.ID), value)
	}
	if len(cfg.Inputs) > 0 {
		fmt.Fprintln(w)
	}

	for _, r := range comp.Results {
		marker := " "
		if r.Highlight {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-*s  %s\n", marker, width, labelOf(r.Label, r.ID), r.Display)
	}
}

func labelOf(label, id string) string {
	if label != "" {
		return label
	}
	return id
}
