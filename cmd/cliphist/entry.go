package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliphist/internal/api"
)

var (
	notice  = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Add stdin to the history as a new entry",
		Long: `Reads stdin and adds it to the head of the history, as if it had been
copied. Empty input is ignored. The system clipboard is not changed; use
"cliphist activate 0" afterwards for that.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	cmd.Flags().String("mime", "text/plain", "MIME type of the data being copied")
	addClientFlags(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.Add(ctx, &api.AddRequest{Data: data, MIME: v.GetString("mime")})
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if !resp.Added {
		_, _ = notice.Fprintln(cmd.ErrOrStderr(), "Same as the newest entry; not added.")
	}
	return nil
}

func newActivateCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "activate INDEX",
		Short: "Copy a history entry back to the system clipboard",
		Long: `Writes the entry at INDEX (0 = newest) to the system clipboard. The
daemon then records the clipboard change like any other, so the entry also
appears again at the head of the history.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return runActivate(cmd, v, i)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func runActivate(cmd *cobra.Command, v *viper.Viper, i int) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.Activate(ctx, &api.ActivateRequest{Index: i})
	if err != nil {
		return fmt.Errorf("activate %d: %w", i, err)
	}
	_, _ = success.Fprintf(cmd.OutOrStdout(), "Activated %d: ", i)
	fmt.Fprintln(cmd.OutOrStdout(), resp.Entry.Description)
	return nil
}

func newDeleteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "delete INDEX",
		Aliases: []string{"rm"},
		Short:   "Remove an entry from the history",
		Long: `Removes the entry at INDEX (0 = newest). An index past the end of the
history is not an error; nothing is removed.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return runDelete(cmd, v, i)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func runDelete(cmd *cobra.Command, v *viper.Viper, i int) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.Remove(ctx, &api.RemoveRequest{Index: i})
	if err != nil {
		return fmt.Errorf("delete %d: %w", i, err)
	}
	if !resp.Removed {
		_, _ = notice.Fprintf(cmd.ErrOrStderr(), "No entry at index %d.\n", i)
	}
	return nil
}
