// cliphist: clipboard history daemon and CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/cliphist/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cliphist",
		Short: "Clipboard history",
		Long: `cliphist records every change of the system clipboard into a history
list, newest first. Consecutive identical copies are recorded once.

Run "cliphist daemon" in your session. The other sub-commands talk to it over
a local socket, or to a remote daemon with --server.

Config file search order (first found wins):
  /etc/cliphist/cliphist.toml
  $HOME/.config/cliphist/cliphist.toml
  path supplied via --config

All flags can be set via CLIPHIST_<FLAG> env vars or config-file keys.
See "cliphist daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newShowCmd(),
		newCopyCmd(),
		newActivateCmd(),
		newDeleteCmd(),
		newPickCmd(),
		newDumpCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cliphist %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(w io.Writer, interactive bool, formatStr, levelStr string) {
	level := logging.DefaultLevel(interactive)
	if levelStr != "" {
		level = logging.ParseLevel(levelStr)
	}
	logging.Setup(w, logging.ParseFormat(formatStr), level)
}
