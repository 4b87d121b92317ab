//go:build !windows

package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/grpcservice"
	"go.klb.dev/cliphist/internal/history"
	"go.klb.dev/cliphist/internal/hub"
)

func TestSocketPath(t *testing.T) {
	t.Setenv("CLIPHIST_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/cliphist.sock", SocketPath())

	t.Setenv("CLIPHIST_SOCKET", "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", SocketPath())
}

func TestListenDial(t *testing.T) {
	t.Setenv("CLIPHIST_SOCKET", filepath.Join(t.TempDir(), "c.sock"))
	assert.False(t, IsRunning())

	ln, err := Listen()
	require.NoError(t, err)

	h := hub.New(history.NewStore())
	h.Add(history.NewEntry([]byte("x"), "text/plain", nil), "test")
	srv := grpc.NewServer()
	api.RegisterHistoryServer(srv, grpcservice.New(h, "", api.DaemonInfo{}))
	go srv.Serve(ln)
	t.Cleanup(srv.Stop)

	assert.True(t, IsRunning())
	_, err = Listen()
	assert.ErrorIs(t, err, ErrRunning)

	conn, err := Dial()
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := api.NewClient(conn).Status(ctx, &api.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
}
