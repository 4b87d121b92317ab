package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliphist/internal/tui"
)

func newPickCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Browse the history interactively",
		Long: `Opens a full-screen list of the history, newest first.

  enter   activate the selected entry and exit
  d       delete the selected entry
  /       filter by preview text
  r       reload from the daemon
  q       quit without activating`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPick(cmd, v) },
	}
	addClientFlags(cmd)
	return cmd
}

func runPick(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	chosen, err := tui.Run(cmd.Context(), s.client)
	if err != nil {
		return err
	}
	if chosen != nil {
		_, _ = success.Fprintf(cmd.OutOrStdout(), "Activated %d: ", chosen.Index)
		fmt.Fprintln(cmd.OutOrStdout(), chosen.Description)
	}
	return nil
}
