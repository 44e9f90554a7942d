// Package cryptox provides the key derivation and record encryption used by
// the encrypted storage backend. Records are sealed with AES-256-GCM under a
// key derived from a passphrase with Argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

// ErrCiphertextTooShort is returned by OpenRecord when the input cannot even
// hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

const (
	keySize   = 32
	nonceSize = 12
)

// DeriveKey derives a 32-byte AES key from a passphrase and salt using
// Argon2id. The same parameters must be used for sealing and opening, so
// changing them invalidates every stored record.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// SealRecord encrypts plaintext with AES-GCM under key. The random 12-byte
// nonce is prepended to the returned ciphertext so a record is a single
// self-contained value.
func SealRecord(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenRecord decrypts a value produced by SealRecord. Authentication failure
// (wrong key or tampered data) surfaces as an error from the GCM open.
func OpenRecord(sealed, key []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return aesgcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
}
