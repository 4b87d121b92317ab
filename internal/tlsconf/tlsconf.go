// Package tlsconf derives deterministic TLS credentials from a passphrase.
//
// The daemon's remote listener and the CLI derive the same ECDSA P-256 key
// from a shared passphrase. The server's certificate is self-signed with a
// fresh serial on every start; clients accept it only if its public key
// equals the one they derived themselves. No CA and no certificate files.
//
// Key derivation:
//
//	HKDF-SHA256(ikm=passphrase, salt="cliphist-tls-v1", info="private-key")
//	→ 64 bytes → reduced mod curve order → deterministic ECDSA P-256 key
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when neither --passphrase nor --token is set.
const DefaultPassphrase = "cliphist"

// ServerName is the name in the daemon's certificate.
const ServerName = "cliphist"

const (
	hkdfSalt = "cliphist-tls-v1"
	hkdfInfo = "private-key"
	certLife = 100 * 365 * 24 * time.Hour
)

// ErrKeyMismatch is returned by the client verifier when the server's public
// key was not derived from the client's passphrase.
var ErrKeyMismatch = errors.New("tlsconf: server public key does not match passphrase")

// identity is the key pair both ends derive from one passphrase.
type identity struct {
	key *ecdsa.PrivateKey
	// pub is the PKIX encoding clients pin.
	pub []byte
}

func newIdentity(passphrase string) (identity, error) {
	seed := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), []byte(hkdfSalt), []byte(hkdfInfo)), seed); err != nil {
		return identity{}, fmt.Errorf("tlsconf: hkdf: %w", err)
	}

	curve := elliptic.P256()
	one := big.NewInt(1)
	nMinus1 := new(big.Int).Sub(curve.Params().N, one)
	// d ∈ [1, N-1]
	d := new(big.Int).SetBytes(seed)
	d.Mod(d, nMinus1).Add(d, one)

	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(d.Bytes())

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return identity{}, fmt.Errorf("tlsconf: public key: %w", err)
	}
	return identity{key: key, pub: pub}, nil
}

// certificate self-signs a fresh certificate for the identity. Only its public
// key matters to clients.
func (id identity) certificate() (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconf: serial: %w", err)
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: ServerName},
		DNSNames:              []string{ServerName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certLife),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &id.key.PublicKey, id.key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconf: certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: id.key}, nil
}

// verifier accepts only a leaf certificate carrying the identity's key.
func (id identity) verifier() func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("tlsconf: server presented no certificate")
		}
		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("tlsconf: parse server cert: %w", err)
		}
		pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if err != nil {
			return fmt.Errorf("tlsconf: server public key: %w", err)
		}
		if !bytes.Equal(pub, id.pub) {
			return ErrKeyMismatch
		}
		return nil
	}
}

// ServerConfig returns the daemon's *tls.Config for tls.NewListener.
//
// NextProtos offers both h2 and http/1.1 so gRPC and HTTP/JSON clients can
// share the cmux listener.
func ServerConfig(passphrase string) (*tls.Config, error) {
	id, err := newIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	cert, err := id.certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientConfig returns a *tls.Config that trusts only a daemon using the same
// passphrase.
func ClientConfig(passphrase string) (*tls.Config, error) {
	id, err := newIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		// The chain is self-signed; the verifier checks the key instead.
		InsecureSkipVerify:    true, //nolint:gosec
		ServerName:            ServerName,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: id.verifier(),
	}, nil
}

// ClientCredentials wraps ClientConfig for gRPC.
func ClientCredentials(passphrase string) (credentials.TransportCredentials, error) {
	cfg, err := ClientConfig(passphrase)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(cfg), nil
}
