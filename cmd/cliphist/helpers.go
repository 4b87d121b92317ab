package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/grpcservice"
	"go.klb.dev/cliphist/internal/ipc"
	"go.klb.dev/cliphist/internal/tlsconf"
)

const (
	defaultPort    = "8753"
	defaultTimeout = 5 * time.Second
)

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
		"HOSTNAME_FRIENDLY",
	} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// defaultHistoryFile is $HOME/.clipboard.
func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipboard"
	}
	return filepath.Join(home, ".clipboard")
}

// session is an open connection to a daemon.
type session struct {
	conn      *grpc.ClientConn
	client    *api.Client
	transport string
}

func (s *session) Close() error { return s.conn.Close() }

// connect opens a session using the local IPC socket, or the remote daemon
// named by --server.
func connect(v *viper.Viper) (*session, error) {
	token := v.GetString("token")
	source := v.GetString("source")
	creds := grpc.WithPerRPCCredentials(&clientCreds{token: token, source: source})

	server := v.GetString("server")
	if server == "" {
		if !ipc.IsRunning() {
			return nil, fmt.Errorf("no cliphist daemon on %s (start one with \"cliphist daemon\" or pass --server)", ipc.SocketPath())
		}
		conn, err := ipc.Dial(creds)
		if err != nil {
			return nil, fmt.Errorf("dial ipc: %w", err)
		}
		return &session{conn: conn, client: api.NewClient(conn), transport: "ipc (" + ipc.SocketPath() + ")"}, nil
	}

	conn, err := dialServer(server, token, creds)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn, client: api.NewClient(conn), transport: "tcp (" + server + ")"}, nil
}

// dialServer returns a TLS connection to a remote daemon. token is used for
// both TLS key derivation and per-RPC auth. Port defaults to 8753.
func dialServer(addr, token string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPort)
	}
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	tlsCreds, err := tlsconf.ClientCredentials(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(tlsCreds)}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// requestContext bounds a single RPC by --timeout.
func requestContext(parent context.Context, v *viper.Viper) (context.Context, context.CancelFunc) {
	d := v.GetDuration("timeout")
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(parent, d)
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: must be an integer", arg)
	}
	return i, nil
}

type clientCreds struct {
	token  string
	source string
}

func (c *clientCreds) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.token != "" {
		md["authorization"] = "Bearer " + c.token
	}
	if c.source != "" {
		md[grpcservice.SourceHeader] = c.source
	}
	return md, nil
}

func (c *clientCreds) RequireTransportSecurity() bool { return false }

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return t.Format("15:04:05")
	default:
		return t.Format("2006-01-02")
	}
}
