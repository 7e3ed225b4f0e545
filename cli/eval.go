package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsacademy/toolcalc/formula"
)

// NewEvalCmd creates the "eval" subcommand.
func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula against named variables",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}

	cmd.Flags().StringArray("var", nil, "Set a variable (repeatable, e.g. --var revenue=1000)")
	cmd.Flags().Bool("tree", false, "Print the parsed formula with explicit grouping")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	src := args[0]
	varFlags, _ := cmd.Flags().GetStringArray("var")
	showTree, _ := cmd.Flags().GetBool("tree")
	out := cmd.OutOrStdout()

	vars, err := parseVarFlags(varFlags)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	prog := formula.Compile(src)
	if showTree {
		fmt.Fprintln(out, prog.String())
	}
	fmt.Fprintln(out, strconv.FormatFloat(prog.Eval(vars), 'f', -1, 64))
	return nil
}

// parseVarFlags reads name=value pairs. Values must be complete numbers;
// the lenient input parsing applies to tool inputs, not to the command line.
func parseVarFlags(flags []string) (formula.Env, error) {
	vars := make(formula.Env, len(flags))
	for _, kv := range flags {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --var %q: %q is not a number", kv, value)
		}
		vars[name] = v
	}
	return vars, nil
}
