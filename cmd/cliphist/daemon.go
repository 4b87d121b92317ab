package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/capture"
	"go.klb.dev/cliphist/internal/clip"
	"go.klb.dev/cliphist/internal/crypto"
	"go.klb.dev/cliphist/internal/grpcservice"
	"go.klb.dev/cliphist/internal/history"
	"go.klb.dev/cliphist/internal/httpapi"
	"go.klb.dev/cliphist/internal/hub"
	"go.klb.dev/cliphist/internal/ipc"
	"go.klb.dev/cliphist/internal/persist"
	"go.klb.dev/cliphist/internal/tlsconf"
)

const shutdownTimeout = 5 * time.Second

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Record clipboard history and serve it to the CLI",
		Long: `Starts the history daemon. Every change of the system clipboard is added
to the head of the history; a copy identical to the current head is ignored.

The CLI sub-commands reach the daemon over a local socket. With --listen the
daemon also serves gRPC and an HTTP/JSON API on one TLS port, keyed by --token.

Config file search order:
  /etc/cliphist/cliphist.toml
  $HOME/.config/cliphist/cliphist.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPHIST_* env vars → flags

Changing "limit" in the config file takes effect without a restart.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("persistent", false, "load the history file at start-up")
	f.String("history-file", defaultHistoryFile(), "history file (JSON array, oldest first)")
	f.Bool("save", false, "rewrite the history file after every change (implies --persistent)")
	f.Int("limit", 0, "keep at most this many entries (0 = unbounded)")
	f.String("passphrase", "", "seal the history file with a key derived from this passphrase")
	f.String("listen", "", "also serve gRPC + HTTP over TLS on this address, e.g. :8753")
	f.String("token", "", "shared secret for --listen (TLS key and bearer token)")
	f.String("source", defaultSource(), "name recorded in entry metadata")
	f.Bool("no-capture", false, "do not watch the system clipboard (API-only mode)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(cmd, v)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	historyFile := v.GetString("history-file")
	source := v.GetString("source")
	token := v.GetString("token")

	var key *crypto.Key
	if pass := v.GetString("passphrase"); pass != "" {
		var err error
		key, err = crypto.DeriveKey(pass)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	store := history.NewStore()
	store.SetLimit(v.GetInt("limit"))
	// Saving rewrites the whole file, so it must start from what is there.
	if v.GetBool("persistent") || v.GetBool("save") {
		n := persist.Apply(store, persist.Load(historyFile, key))
		slog.Info("history restored", "path", historyFile, "entries", n)
	}
	h := hub.New(store)

	capturing := !v.GetBool("no-capture")
	var backend clip.Backend
	backendName := "none"
	if capturing {
		backend = clip.New()
		defer backend.Close()
		backendName = backend.Name()
	}

	info := api.DaemonInfo{
		Version:     Version,
		Source:      source,
		Backend:     backendName,
		Persistent:  v.GetBool("persistent") || v.GetBool("save"),
		Saving:      v.GetBool("save"),
		HistoryFile: historyFile,
		StartedAt:   time.Now(),
	}
	slog.Info("cliphist daemon starting",
		"version", Version,
		"backend", info.Backend,
		"limit", store.Limit(),
		"persistent", info.Persistent,
		"save", info.Saving,
		"sealed", key != nil,
	)

	ipcLn, err := ipc.Listen()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if capturing {
		p := capture.New(h, backend, source)
		g.Go(func() error {
			p.Run(ctx)
			return nil
		})
	} else {
		slog.Info("clipboard capture disabled")
	}
	if info.Saving {
		s := persist.NewSaver(h, historyFile, key)
		g.Go(func() error {
			s.Run(ctx)
			return nil
		})
	}

	// The local socket is owner-only, so it skips token auth.
	ipcSrv := grpc.NewServer()
	api.RegisterHistoryServer(ipcSrv, grpcservice.New(h, "", info))
	g.Go(func() error {
		if err := ipcSrv.Serve(ipcLn); err != nil {
			return fmt.Errorf("ipc server: %w", err)
		}
		return nil
	})
	slog.Info("IPC socket listening", "path", ipc.SocketPath())

	var remote *remoteServer
	if addr := v.GetString("listen"); addr != "" {
		remote, err = serveRemote(addr, token, grpcservice.New(h, token, info))
		if err != nil {
			stop()
			ipcSrv.Stop()
			_ = g.Wait()
			return err
		}
	}

	watchConfig(v, func() { h.SetLimit(v.GetInt("limit")) })

	<-ctx.Done()
	slog.Info("shutting down")

	if remote != nil {
		remote.shutdown()
	}
	stopGRPC(ipcSrv)
	return g.Wait()
}

// stopGRPC drains in-flight RPCs, then cuts long-lived Watch streams.
func stopGRPC(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		srv.Stop()
	}
}

// remoteServer is the TLS listener shared by gRPC and HTTP via cmux.
type remoteServer struct {
	ln   net.Listener
	grpc *grpc.Server
	http *http.Server
}

func serveRemote(addr, token string, svc *grpcservice.Service) (*remoteServer, error) {
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
		slog.Warn("remote listener has no token; anyone with the default passphrase can read the history")
	}
	serverCfg, err := tlsconf.ServerConfig(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	tlsLn := tls.NewListener(ln, serverCfg)

	m := cmux.New(tlsLn)
	grpcLn := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"))
	httpLn := m.Match(cmux.HTTP1Fast())

	rs := &remoteServer{
		ln:   ln,
		grpc: grpc.NewServer(),
		http: &http.Server{Handler: httpapi.New(svc), ReadHeaderTimeout: 10 * time.Second},
	}
	api.RegisterHistoryServer(rs.grpc, svc)

	go func() {
		if err := rs.grpc.Serve(grpcLn); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("grpc server stopped", "err", err)
		}
	}()
	go func() {
		if err := rs.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("http server stopped", "err", err)
		}
	}()
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("cmux stopped", "err", err)
		}
	}()

	slog.Info("remote listener started", "addr", ln.Addr().String(), "auth", token != "")
	return rs, nil
}

func (rs *remoteServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rs.http.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	rs.grpc.Stop()
	_ = rs.ln.Close()
}
