package tlsconf

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity_Deterministic(t *testing.T) {
	a, err := newIdentity("passphrase")
	require.NoError(t, err)
	b, err := newIdentity("passphrase")
	require.NoError(t, err)
	c, err := newIdentity("other")
	require.NoError(t, err)

	assert.True(t, a.key.Equal(b.key))
	assert.Equal(t, a.pub, b.pub)
	assert.False(t, a.key.Equal(c.key))
}

// handshake serves one TLS connection with serverPass and dials it with a
// client pinned to clientPass.
func handshake(t *testing.T, serverPass, clientPass string) error {
	t.Helper()
	serverCfg, err := ServerConfig(serverPass)
	require.NoError(t, err)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", serverCfg)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.(*tls.Conn).Handshake()
		conn.Close()
	}()

	clientCfg, err := ClientConfig(clientPass)
	require.NoError(t, err)
	conn, err := tls.Dial("tcp", ln.Addr().String(), clientCfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

func TestPinning(t *testing.T) {
	assert.NoError(t, handshake(t, "shared", "shared"))

	err := handshake(t, "shared", "different")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestServerConfig_ALPN(t *testing.T) {
	cfg, err := ServerConfig(DefaultPassphrase)
	require.NoError(t, err)
	assert.Equal(t, []string{"h2", "http/1.1"}, cfg.NextProtos)

	creds, err := ClientCredentials(DefaultPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}
