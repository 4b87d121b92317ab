package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliphist/internal/api"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Displays the daemon's version, clipboard backend, history size and
connected watchers.

If a local daemon is running, the request is sent via the IPC socket. Pass
--server to query a remote daemon over TLS.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := requestContext(cmd.Context(), v)
	defer cancel()
	resp, err := s.client.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printStatus(out, resp, s.transport)
	return nil
}

func printStatus(out io.Writer, resp *api.StatusResponse, transport string) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)

	limit := "unbounded"
	if resp.Limit > 0 {
		limit = fmt.Sprint(resp.Limit)
	}
	persistence := "off"
	switch {
	case resp.Persistent && resp.Saving:
		persistence = "load + save " + resp.HistoryFile
	case resp.Persistent:
		persistence = "load " + resp.HistoryFile
	case resp.Saving:
		persistence = "save " + resp.HistoryFile
	}
	watchers := "-"
	if len(resp.Watchers) > 0 {
		watchers = strings.Join(resp.Watchers, ", ")
	}

	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	fmt.Fprintf(w, "Source:\t%s\n", resp.Source)
	fmt.Fprintf(w, "Backend:\t%s\n", resp.Backend)
	if !resp.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:\t%s (%s)\n", resp.StartedAt.UTC().Format(time.RFC3339), fmtAge(resp.StartedAt))
	}
	fmt.Fprintf(w, "Entries:\t%d\n", resp.Count)
	fmt.Fprintf(w, "Limit:\t%s\n", limit)
	fmt.Fprintf(w, "History file:\t%s\n", persistence)
	fmt.Fprintf(w, "Watchers:\t%s\n", watchers)
	_ = w.Flush()
}
