package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/history"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the clipboard history, newest first",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runList(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	cmd.Flags().Bool("data", false, "include payloads in --json output")
	addClientFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.List(ctx, &api.ListRequest{WithData: v.GetBool("data")})
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printList(out, resp)
	return nil
}

func printList(out io.Writer, resp *api.ListResponse) {
	if len(resp.Entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "INDEX\tAGE\tTYPE\tSIZE\tCONTENT\n")
	for _, e := range resp.Entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.Index, fmtAge(e.Time), e.MIME, history.FormatSize(e.Size), e.Description)
	}
	_ = tw.Flush()
}

func newShowCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "show INDEX",
		Short: "Write the payload of one entry to stdout",
		Long: `Writes the raw payload of the entry at INDEX (0 = newest) to stdout,
exactly as it was copied. Pipe binary entries to a file:

  cliphist show 3 > picture.png`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return runShow(cmd, v, i)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func runShow(cmd *cobra.Command, v *viper.Viper, i int) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.Get(ctx, &api.GetRequest{Index: i})
	if err != nil {
		return fmt.Errorf("show %d: %w", i, err)
	}
	_, err = cmd.OutOrStdout().Write(resp.Entry.Data)
	return err
}

func newDumpCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Log every history row at debug level",
		Long: `Fetches the whole history and writes one debug-level log record per
row to stderr, for troubleshooting. Use --log-format json for machine-readable
output.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDump(cmd, v) },
	}
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	// Dump is useless below debug; default to it without marking the flag set.
	lvl := cmd.Flags().Lookup("log-level")
	lvl.DefValue = "debug"
	_ = lvl.Value.Set("debug")
	return cmd
}

func runDump(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(cmd, v)

	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.List(ctx, &api.ListRequest{})
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	slog.Debug("history dump", "transport", s.transport, "count", resp.Count, "limit", resp.Limit)
	for _, e := range resp.Entries {
		slog.Debug("history row",
			"index", e.Index,
			"mime", e.MIME,
			"size_bytes", e.Size,
			"time", e.Time,
			"metadata", e.Metadata,
			"content", e.Description,
		)
	}
	return nil
}
