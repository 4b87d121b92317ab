// Package crypto seals the persisted clipboard history with NaCl secretbox.
//
// A 32-byte symmetric key is derived from the configured passphrase using
// HKDF-SHA256. A sealed file is a random 24-byte nonce followed by the
// ciphertext:
//
//	[ 24-byte nonce ][ ciphertext ]
//
// With no passphrase the history file is plain JSON and this package is not
// used.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Key is a secretbox key.
type Key = [keySize]byte

// ErrOpen is returned when a sealed blob cannot be authenticated.
var ErrOpen = errors.New("decryption failed (wrong passphrase?)")

var hkdfInfo = []byte("cliphist-history-v1")

// DeriveKey derives a secretbox key from passphrase using HKDF-SHA256.
func DeriveKey(passphrase string) (*Key, error) {
	h := hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo)
	var key Key
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext with key, prepending a random nonce.
func Seal(plaintext []byte, key *Key) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts a nonce+ciphertext blob produced by Seal.
func Open(sealed []byte, key *Key) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: input too short", ErrOpen)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrOpen
	}
	return plain, nil
}
