package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/cliphist/internal/api"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream history changes until interrupted",
		Long: `Prints one line per history change (added, removed, activated, trimmed)
until interrupted. With --json each change is a JSON object on its own line.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output JSON lines")
	cmd.Flags().Bool("data", false, "include payloads in --json output")
	addClientFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	stream, err := s.client.Watch(ctx, &api.WatchRequest{WithData: v.GetBool("data")})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	jsonOut := v.GetBool("json")
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if jsonOut {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		printEvent(out, ev)
	}
}

var kindColors = map[string]*color.Color{
	"added":     color.New(color.FgGreen),
	"removed":   color.New(color.FgRed),
	"activated": color.New(color.FgCyan, color.Bold),
	"trimmed":   color.New(color.FgYellow),
}

func printEvent(out io.Writer, ev *api.WatchEvent) {
	ts := time.Now().Format("15:04:05")
	kind := fmt.Sprintf("%-9s", ev.Kind)
	if c, ok := kindColors[ev.Kind]; ok {
		kind = c.Sprint(kind)
	}
	if ev.Entry == nil {
		fmt.Fprintf(out, "%s  %s  count=%d  origin=%s\n", ts, kind, ev.Count, ev.Origin)
		return
	}
	fmt.Fprintf(out, "%s  %s  #%d  %s  %s  origin=%s\n",
		ts, kind, ev.Index, ev.Entry.MIME, ev.Entry.Description, ev.Origin)
}
