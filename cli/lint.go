package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsacademy/toolcalc/formula"
)

// NewLintCmd creates the "lint" subcommand.
func NewLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <formula>",
		Short: "Report the parts of a formula that would be silently ignored or replaced",
		Args:  cobra.ExactArgs(1),
		RunE:  runLint,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

type lintOutput struct {
	Formula     string          `json:"formula"`
	Parsed      string          `json:"parsed"`
	Issues      []formula.Issue `json:"issues"`
	Identifiers []string        `json:"identifiers"`
}

func runLint(cmd *cobra.Command, args []string) error {
	src := args[0]
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	result := lintOutput{
		Formula:     src,
		Parsed:      formula.Compile(src).String(),
		Issues:      formula.Lint(src),
		Identifiers: formula.Identifiers(src),
	}
	if result.Issues == nil {
		result.Issues = []formula.Issue{}
	}
	if result.Identifiers == nil {
		result.Identifiers = []string{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	case "text":
		fmt.Fprintf(out, "parsed: %s\n", result.Parsed)
		if len(result.Identifiers) > 0 {
			fmt.Fprintf(out, "identifiers: %s\n", strings.Join(result.Identifiers, ", "))
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(out, "WARNING: %s\n", issue)
		}
		if len(result.Issues) == 0 {
			fmt.Fprintln(out, "No issues.")
		}
	default:
		return exitError(exitInputParse, "unknown format %q (want text or json)", format)
	}

	if len(result.Issues) > 0 {
		return exitError(exitValidation, "%d %s", len(result.Issues), pluralize("issue", len(result.Issues)))
	}
	return nil
}
