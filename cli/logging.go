package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewLogger returns a text logger at the level selected by the persistent
// --verbose and --quiet flags.
func NewLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ConfigureLogging installs the default slog logger for a command run. It is
// meant for the root command's PersistentPreRunE.
func ConfigureLogging(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	slog.SetDefault(NewLogger(cmd.ErrOrStderr(), verbose, quiet))
	return nil
}
