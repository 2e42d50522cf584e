package keystore

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for the password KDF. Stored alongside each key so they
// can change without breaking existing files.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// keyFile is the on-disk format of a sealed key: AES-256-GCM over the PKCS#8
// private key, keyed by scrypt of the owner's password. The key ID is bound
// into the GCM additional data so files cannot be swapped between IDs.
type keyFile struct {
	Version      int       `json:"version"`
	KeyID        string    `json:"key_id"`
	Algorithm    Algorithm `json:"algorithm"`
	Fingerprint  string    `json:"fingerprint"`
	PublicKeyPEM string    `json:"public_key"`
	KDF          kdfParams `json:"kdf"`
	Nonce        string    `json:"nonce"`
	Ciphertext   string    `json:"ciphertext"`
	CreatedAt    time.Time `json:"created_at"`
}

type kdfParams struct {
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt string `json:"salt"`
}

// FileStore implements KeyStore on the local filesystem: one sealed JSON file
// plus a world-readable .pub PEM per key, in a 0700 directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file-backed key store rooted at baseDir.
// If baseDir is empty, uses ~/.petconnect/keys/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".petconnect", "keys")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	log.Debug().Str("dir", baseDir).Msg("Keystore initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// Generate creates a new keypair sealed with the password.
func (s *FileStore) Generate(ctx context.Context, keyID string, alg Algorithm, password []byte) (*KeyInfo, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password is required")
	}

	keyPath := s.keyPath(keyID)
	if _, err := os.Stat(keyPath); err == nil {
		return nil, ErrKeyExists
	}

	log.Info().Str("key_id", keyID).Str("algorithm", string(alg)).Msg("Generating signing key")

	privateDER, publicDER, err := generateKeypair(alg)
	if err != nil {
		return nil, err
	}
	defer wipe(privateDER)

	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	hash := sha256.Sum256(publicDER)
	fingerprint := base58.Encode(hash[:])

	sealed, err := seal(keyID, privateDER, password)
	if err != nil {
		return nil, err
	}
	sealed.Algorithm = alg
	sealed.Fingerprint = fingerprint
	sealed.PublicKeyPEM = string(publicKeyPEM)
	sealed.CreatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key file: %w", err)
	}

	if err := os.WriteFile(keyPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	pubPath := s.pubPath(keyID)
	// #nosec G306 - public key files are intentionally world-readable
	if err := os.WriteFile(pubPath, publicKeyPEM, 0644); err != nil {
		os.Remove(keyPath)
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	log.Info().
		Str("key_id", keyID).
		Str("fingerprint", fingerprint).
		Msg("Generated signing key")

	return &KeyInfo{
		KeyID:        keyID,
		Algorithm:    alg,
		Fingerprint:  fingerprint,
		PublicKeyPEM: string(publicKeyPEM),
		CreatedAt:    sealed.CreatedAt,
	}, nil
}

// WithSigner unseals the key for the duration of fn.
func (s *FileStore) WithSigner(ctx context.Context, keyID string, password []byte, fn func(signer crypto.Signer, info *KeyInfo) error) error {
	kf, err := s.load(keyID)
	if err != nil {
		return err
	}

	privateDER, err := open(kf, password)
	if err != nil {
		return err
	}
	defer wipe(privateDER)

	parsed, err := x509.ParsePKCS8PrivateKey(privateDER)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	signer, cleanup, err := asSigner(parsed)
	if err != nil {
		return err
	}
	defer cleanup()

	info := &KeyInfo{
		KeyID:        kf.KeyID,
		Algorithm:    kf.Algorithm,
		Fingerprint:  kf.Fingerprint,
		PublicKeyPEM: kf.PublicKeyPEM,
		CreatedAt:    kf.CreatedAt,
	}

	return fn(signer, info)
}

// Info returns the public metadata for a stored key.
func (s *FileStore) Info(ctx context.Context, keyID string) (*KeyInfo, error) {
	kf, err := s.load(keyID)
	if err != nil {
		return nil, err
	}

	return &KeyInfo{
		KeyID:        kf.KeyID,
		Algorithm:    kf.Algorithm,
		Fingerprint:  kf.Fingerprint,
		PublicKeyPEM: kf.PublicKeyPEM,
		CreatedAt:    kf.CreatedAt,
	}, nil
}

func (s *FileStore) keyPath(keyID string) string {
	return filepath.Join(s.baseDir, keyID+".json")
}

func (s *FileStore) pubPath(keyID string) string {
	return filepath.Join(s.baseDir, keyID+".pub")
}

func (s *FileStore) load(keyID string) (*keyFile, error) {
	data, err := os.ReadFile(s.keyPath(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}

	return &kf, nil
}

func generateKeypair(alg Algorithm) (privateDER, publicDER []byte, err error) {
	var private any
	var public any

	switch alg {
	case AlgorithmEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate key: %w", err)
		}
		private, public = priv, pub
	case AlgorithmECDSAP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate key: %w", err)
		}
		private, public = priv, &priv.PublicKey
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	privateDER, err = x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	publicDER, err = x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return privateDER, publicDER, nil
}

// seal encrypts the PKCS#8 key with AES-256-GCM under scrypt(password).
func seal(keyID string, privateDER, password []byte) (*keyFile, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aesKey, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer wipe(aesKey)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, privateDER, []byte(keyID))

	return &keyFile{
		Version: 1,
		KeyID:   keyID,
		KDF: kdfParams{
			N:    scryptN,
			R:    scryptR,
			P:    scryptP,
			Salt: base64.StdEncoding.EncodeToString(salt),
		},
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// open decrypts the sealed key. Authentication failures map to ErrKeyAuth.
func open(kf *keyFile, password []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(kf.KDF.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(kf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(kf.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesKey, err := scrypt.Key(password, salt, kf.KDF.N, kf.KDF.R, kf.KDF.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer wipe(aesKey)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(kf.KeyID))
	if err != nil {
		return nil, ErrKeyAuth
	}

	return plaintext, nil
}

// asSigner converts a parsed PKCS#8 key into a crypto.Signer plus a cleanup
// that wipes the in-memory key material.
func asSigner(parsed any) (crypto.Signer, func(), error) {
	switch key := parsed.(type) {
	case ed25519.PrivateKey:
		return key, func() { wipe(key) }, nil
	case *ecdsa.PrivateKey:
		return key, func() { wipeBigInt(key.D) }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnsupportedAlgorithm, parsed)
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// wipeBigInt zeroes the scalar's backing words in place.
func wipeBigInt(d *big.Int) {
	bits := d.Bits()
	for i := range bits {
		bits[i] = 0
	}
}
