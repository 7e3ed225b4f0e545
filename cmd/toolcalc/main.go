package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsacademy/toolcalc/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toolcalc",
	Short: "Interactive Tool formula evaluator",
	Long:  "toolcalc evaluates, lints and serves the calculator tools embedded in lessons.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage:      true,
	PersistentPreRunE: cli.ConfigureLogging,
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress all output except errors")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("toolcalc version %s\n", version))

	rootCmd.AddCommand(cli.NewEvalCmd())
	rootCmd.AddCommand(cli.NewLintCmd())
	rootCmd.AddCommand(cli.NewComputeCmd())
	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
}
