package keystore

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// Algorithm identifies a supported signing key algorithm.
type Algorithm string

const (
	// AlgorithmEd25519 signs the digest bytes directly.
	AlgorithmEd25519 Algorithm = "Ed25519"

	// AlgorithmECDSAP256 signs the digest bytes as a pre-hashed message
	// (ASN.1 DER encoded r,s).
	AlgorithmECDSAP256 Algorithm = "ECDSA-P256"
)

// Sentinel errors
var (
	// ErrKeyNotFound is returned when no key exists under the given ID.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists is returned when generating over an existing key ID.
	ErrKeyExists = errors.New("key already exists")

	// ErrKeyAuth is returned when the password cannot open the sealed key.
	// Wrong password and corrupted ciphertext are indistinguishable.
	ErrKeyAuth = errors.New("key decryption failed")

	// ErrUnsupportedAlgorithm is returned for unknown key algorithms.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")
)

// KeyInfo is the public half of a stored key.
type KeyInfo struct {
	KeyID        string
	Algorithm    Algorithm
	Fingerprint  string // Base58-encoded SHA256(PKIX public key)
	PublicKeyPEM string
	CreatedAt    time.Time
}

// KeyStore manages password-sealed private signing keys. Private key material
// only ever exists in plaintext inside the scope of a WithSigner callback.
type KeyStore interface {
	// Generate creates a new keypair sealed with the password and stores it
	// under keyID.
	Generate(ctx context.Context, keyID string, alg Algorithm, password []byte) (*KeyInfo, error)

	// WithSigner unseals the key, invokes fn with the live signer, and wipes
	// the key material when fn returns, on error and panic paths included.
	// The signer must not be retained beyond the callback.
	WithSigner(ctx context.Context, keyID string, password []byte, fn func(signer crypto.Signer, info *KeyInfo) error) error

	// Info returns the public metadata for a stored key.
	Info(ctx context.Context, keyID string) (*KeyInfo, error)
}

// ParsePublicKeyPEM parses a PKIX public key from PEM.
func ParsePublicKeyPEM(pemData string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return pub, nil
}

// Fingerprint returns the Base58-encoded SHA256 of the PKIX encoding of pub.
// This is the key ID carried on certificates and QR envelopes.
func Fingerprint(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(der)
	return base58.Encode(hash[:]), nil
}
