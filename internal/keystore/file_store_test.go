package keystore

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Compile-time interface checks.
var (
	_ KeyStore = (*FileStore)(nil)
	_ KeyStore = (*MemoryStore)(nil)
)

func TestFileStoreGenerate(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	info, err := s.Generate(ctx, "vet-1", AlgorithmEd25519, []byte("hunter2hunter2"))
	require.NoError(t, err)
	require.Equal(t, "vet-1", info.KeyID)
	require.Equal(t, AlgorithmEd25519, info.Algorithm)
	require.NotEmpty(t, info.Fingerprint)
	require.Contains(t, info.PublicKeyPEM, "BEGIN PUBLIC KEY")

	t.Run("duplicate key id is rejected", func(t *testing.T) {
		_, err := s.Generate(ctx, "vet-1", AlgorithmEd25519, []byte("other"))
		require.ErrorIs(t, err, ErrKeyExists)
	})

	t.Run("unknown algorithm is rejected", func(t *testing.T) {
		_, err := s.Generate(ctx, "vet-2", Algorithm("RSA-1024"), []byte("pw"))
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("key file never contains plaintext key material", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		require.NoError(t, err)

		_, err = fs.Generate(ctx, "vet-3", AlgorithmECDSAP256, []byte("pw-pw-pw"))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "vet-3.json"))
		require.NoError(t, err)

		var kf keyFile
		require.NoError(t, json.Unmarshal(data, &kf))
		require.NotEmpty(t, kf.Ciphertext)
		require.NotContains(t, string(data), "PRIVATE KEY")
	})
}

func TestFileStoreWithSigner(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	password := []byte("correct horse battery staple")
	info, err := s.Generate(ctx, "clinic-1", AlgorithmEd25519, password)
	require.NoError(t, err)

	t.Run("signs and verifies with the stored key", func(t *testing.T) {
		digest := []byte("0123456789abcdef0123456789abcdef")

		var signature []byte
		err := s.WithSigner(ctx, "clinic-1", password, func(signer crypto.Signer, got *KeyInfo) error {
			require.Equal(t, info.Fingerprint, got.Fingerprint)

			var signErr error
			signature, signErr = signer.Sign(nil, digest, crypto.Hash(0))
			return signErr
		})
		require.NoError(t, err)

		pub, ok := publicKeyOf(t, s, "clinic-1").(ed25519.PublicKey)
		require.True(t, ok)
		require.True(t, ed25519.Verify(pub, digest, signature))
	})

	t.Run("wrong password fails closed", func(t *testing.T) {
		err := s.WithSigner(ctx, "clinic-1", []byte("nope"), func(crypto.Signer, *KeyInfo) error {
			t.Fatal("callback must not run")
			return nil
		})
		require.ErrorIs(t, err, ErrKeyAuth)
	})

	t.Run("unknown key id", func(t *testing.T) {
		err := s.WithSigner(ctx, "ghost", password, func(crypto.Signer, *KeyInfo) error { return nil })
		require.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("tampered ciphertext fails closed", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		require.NoError(t, err)
		_, err = fs.Generate(ctx, "victim", AlgorithmEd25519, password)
		require.NoError(t, err)

		path := filepath.Join(dir, "victim.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var kf keyFile
		require.NoError(t, json.Unmarshal(data, &kf))
		kf.Ciphertext = kf.Ciphertext[:len(kf.Ciphertext)-8] + "AAAAAAAA"
		tampered, err := json.Marshal(kf)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, tampered, 0600))

		err = fs.WithSigner(ctx, "victim", password, func(crypto.Signer, *KeyInfo) error { return nil })
		require.ErrorIs(t, err, ErrKeyAuth)
	})

	t.Run("info round trip", func(t *testing.T) {
		got, err := s.Info(ctx, "clinic-1")
		require.NoError(t, err)
		require.Equal(t, info.Fingerprint, got.Fingerprint)
		require.Equal(t, info.PublicKeyPEM, got.PublicKeyPEM)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	password := []byte("pw")
	_, err := s.Generate(ctx, "vet", AlgorithmECDSAP256, password)
	require.NoError(t, err)

	t.Run("password gate", func(t *testing.T) {
		err := s.WithSigner(ctx, "vet", []byte("wrong"), func(crypto.Signer, *KeyInfo) error { return nil })
		require.ErrorIs(t, err, ErrKeyAuth)

		err = s.WithSigner(ctx, "vet", password, func(signer crypto.Signer, info *KeyInfo) error {
			require.NotNil(t, signer.Public())
			require.Equal(t, AlgorithmECDSAP256, info.Algorithm)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Info(ctx, "missing")
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func publicKeyOf(t *testing.T, s KeyStore, keyID string) crypto.PublicKey {
	t.Helper()

	info, err := s.Info(context.Background(), keyID)
	require.NoError(t, err)

	pub, err := ParsePublicKeyPEM(info.PublicKeyPEM)
	require.NoError(t, err)
	return pub
}
