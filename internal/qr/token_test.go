package qr

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
)

func signedCertificate(t *testing.T) (*models.Certificate, *keystore.KeyInfo, *keystore.KeyInfo) {
	t.Helper()
	ctx := context.Background()

	keys := keystore.NewMemoryStore()

	vetInfo, err := keys.Generate(ctx, "vet-key", keystore.AlgorithmEd25519, []byte("vet-pw"))
	require.NoError(t, err)

	clinicInfo, err := keys.Generate(ctx, "clinic-key", keystore.AlgorithmECDSAP256, []byte("clinic-pw"))
	require.NoError(t, err)

	body := `{"version":"1.0.0","number":"AHC-2026-0001"}`

	digest, err := signing.Hash([]byte(body))
	require.NoError(t, err)

	signer := signing.NewSigner(keys)

	vetSig, err := signer.SignDetached(ctx, "vet-key", []byte("vet-pw"), digest)
	require.NoError(t, err)

	clinicSig, err := signer.SignDetached(ctx, "clinic-key", []byte("clinic-pw"), digest)
	require.NoError(t, err)

	cert := &models.Certificate{
		CertificateID:   uuid.Must(uuid.NewV7()),
		RecordID:        uuid.Must(uuid.NewV7()),
		Number:          "AHC-2026-0001",
		Payload:         body,
		Hash:            digest,
		VetSignature:    vetSig.Value,
		ClinicSignature: clinicSig.Value,
		VetKeyID:        vetSig.KeyID,
		ClinicKeyID:     clinicSig.KeyID,
		IssuedAt:        time.Date(2026, time.April, 2, 15, 4, 5, 0, time.UTC),
	}

	return cert, vetInfo, clinicInfo
}

func TestTokenRoundTrip(t *testing.T) {
	cert, vetInfo, clinicInfo := signedCertificate(t)

	token, err := Encode(cert)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, TokenPrefix))

	t.Run("body stays in the base45 alphabet", func(t *testing.T) {
		for _, c := range token[len(TokenPrefix):] {
			require.Contains(t, base45Alphabet, string(c))
		}
	})

	env, err := Decode(token)
	require.NoError(t, err)
	require.Equal(t, cert.Number, env.Number)
	require.Equal(t, cert.IssuedAt.Unix(), env.IssuedAt)
	require.Equal(t, cert.Payload, string(env.Payload))
	require.Equal(t, cert.Hash, env.Hash)
	require.Equal(t, cert.VetSignature, env.VetSignature)
	require.Equal(t, cert.ClinicSignature, env.ClinicSignature)
	require.Equal(t, cert.VetKeyID, env.VetKeyID)
	require.Equal(t, cert.ClinicKeyID, env.ClinicKeyID)

	t.Run("verifies offline", func(t *testing.T) {
		require.NoError(t, Verify(env, vetInfo.PublicKeyPEM, clinicInfo.PublicKeyPEM))
	})

	t.Run("rejects swapped public keys", func(t *testing.T) {
		require.ErrorIs(t, Verify(env, clinicInfo.PublicKeyPEM, vetInfo.PublicKeyPEM), signing.ErrVerification)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		tampered := *env
		tampered.Payload = []byte(`{"version":"1.0.0","number":"AHC-2026-9999"}`)
		require.ErrorIs(t, Verify(&tampered, vetInfo.PublicKeyPEM, clinicInfo.PublicKeyPEM), signing.ErrVerification)
	})

	t.Run("rejects a tampered digest", func(t *testing.T) {
		digest, err := signing.Hash([]byte("something else"))
		require.NoError(t, err)

		tampered := *env
		tampered.Hash = digest
		require.ErrorIs(t, Verify(&tampered, vetInfo.PublicKeyPEM, clinicInfo.PublicKeyPEM), signing.ErrVerification)
	})
}

func TestDecodeErrors(t *testing.T) {
	t.Run("wrong prefix", func(t *testing.T) {
		_, err := Decode("HC2:BB8")
		require.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("invalid base45", func(t *testing.T) {
		_, err := Decode("HC1:abc")
		require.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("valid base45 but not zlib", func(t *testing.T) {
		_, err := Decode(TokenPrefix + base45Encode([]byte("not compressed")))
		require.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("valid zlib but not cbor", func(t *testing.T) {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		require.NoError(t, err)
		_, err = zw.Write([]byte("\xff\xfe garbage"))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		_, err = Decode(TokenPrefix + base45Encode(buf.Bytes()))
		require.ErrorIs(t, err, ErrEncoding)
	})
}
