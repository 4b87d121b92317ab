// Package ipc provides the local IPC channel CLI tools use to talk to a
// running cliphist daemon.
//
// The channel is plain gRPC served over a Unix domain socket (a named pipe
// on Windows), carrying the same HistoryService as the TCP listener but
// without TLS or token auth. CLI sub-commands probe for it and fall back to
// --server when it is absent.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrRunning is returned by Listen when another daemon owns the socket.
var ErrRunning = errors.New("cliphist daemon already running")

// probeTimeout bounds the IsRunning dial.
const probeTimeout = 500 * time.Millisecond

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/cliphist.sock, else $TMPDIR/cliphist.sock
//   - Windows:       \\.\pipe\cliphist
//
// $CLIPHIST_SOCKET overrides both.
func SocketPath() string {
	if s := os.Getenv("CLIPHIST_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a cliphist daemon appears to be listening on the
// IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	c, err := dialIPC(ctx, SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the IPC socket. A stale socket left by a
// crashed daemon is replaced; a live one yields ErrRunning.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("%w: %s", ErrRunning, path)
	}
	removeStale(path)
	ln, err := listenIPC(path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return ln, nil
}

// Dial returns a gRPC client connection to the daemon's IPC socket.
// The connection is lazy; errors surface on the first call.
func Dial(opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	path := SocketPath()
	opts = append([]grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return dialIPC(ctx, path)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	return grpc.NewClient("passthrough:///cliphist", opts...)
}
