package keystore

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"
)

// MemoryStore implements KeyStore in memory. Keys live unsealed for the
// process lifetime, so this implementation is for tests and local
// development only.
type MemoryStore struct {
	mu sync.RWMutex

	keys map[string]*memoryKey // key_id -> key
}

type memoryKey struct {
	signer   crypto.Signer
	password []byte
	info     KeyInfo
}

// NewMemoryStore creates a new in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*memoryKey),
	}
}

// Generate creates a new keypair guarded by the password.
func (s *MemoryStore) Generate(ctx context.Context, keyID string, alg Algorithm, password []byte) (*KeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[keyID]; exists {
		return nil, ErrKeyExists
	}

	var signer crypto.Signer
	var public any

	switch alg {
	case AlgorithmEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		signer, public = priv, pub
	case AlgorithmECDSAP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		signer, public = priv, &priv.PublicKey
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(publicDER)
	info := KeyInfo{
		KeyID:        keyID,
		Algorithm:    alg,
		Fingerprint:  base58.Encode(hash[:]),
		PublicKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})),
		CreatedAt:    time.Now().UTC(),
	}

	pw := make([]byte, len(password))
	copy(pw, password)

	s.keys[keyID] = &memoryKey{signer: signer, password: pw, info: info}

	infoCopy := info
	return &infoCopy, nil
}

// WithSigner invokes fn with the stored signer after checking the password.
func (s *MemoryStore) WithSigner(ctx context.Context, keyID string, password []byte, fn func(signer crypto.Signer, info *KeyInfo) error) error {
	s.mu.RLock()
	key, exists := s.keys[keyID]
	s.mu.RUnlock()

	if !exists {
		return ErrKeyNotFound
	}
	if subtle.ConstantTimeCompare(key.password, password) != 1 {
		return ErrKeyAuth
	}

	info := key.info
	return fn(key.signer, &info)
}

// Info returns the public metadata for a stored key.
func (s *MemoryStore) Info(ctx context.Context, keyID string) (*KeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.keys[keyID]
	if !exists {
		return nil, ErrKeyNotFound
	}

	info := key.info
	return &info, nil
}
