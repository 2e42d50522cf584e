package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
	"github.com/i-bosquet/petconnect-sub002/internal/qr"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
)

const testPassword = "opensesame"

func TestKeygenCmd_Run(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := &KeygenCmd{
		KeyID:     "clinic-madrid-01",
		Dir:       tmpDir,
		Algorithm: "Ed25519",
		Password:  testPassword,
	}

	err := cmd.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tmpDir, "clinic-madrid-01.json"))
	require.NoError(t, err)

	store, err := keystore.NewFileStore(tmpDir)
	require.NoError(t, err)

	info, err := store.Info(context.Background(), "clinic-madrid-01")
	require.NoError(t, err)
	assert.Equal(t, keystore.AlgorithmEd25519, info.Algorithm)
	assert.NotEmpty(t, info.Fingerprint)
	assert.Contains(t, info.PublicKeyPEM, "BEGIN PUBLIC KEY")
}

func TestKeygenCmd_Duplicate(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := &KeygenCmd{
		KeyID:     "vet-key",
		Dir:       tmpDir,
		Algorithm: "ECDSA-P256",
		Password:  testPassword,
	}

	err := cmd.Run(context.Background())
	require.NoError(t, err)

	err = cmd.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrKeyExists)
}

func TestPubkeyCmd_Run(t *testing.T) {
	tmpDir := t.TempDir()

	keygen := &KeygenCmd{
		KeyID:     "vet-key",
		Dir:       tmpDir,
		Algorithm: "Ed25519",
		Password:  testPassword,
	}
	require.NoError(t, keygen.Run(context.Background()))

	cmd := &PubkeyCmd{KeyID: "vet-key", Dir: tmpDir}
	require.NoError(t, cmd.Run(context.Background()))
}

func TestPubkeyCmd_UnknownKey(t *testing.T) {
	cmd := &PubkeyCmd{KeyID: "nope", Dir: t.TempDir()}

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
}

// makeSignedToken builds a token whose payload is signed by a fresh vet and
// clinic keypair, and writes both public PEMs next to it.
func makeSignedToken(t *testing.T, dir string) (token, vetPEM, clinicPEM string) {
	t.Helper()
	ctx := context.Background()

	keys := keystore.NewMemoryStore()
	vetKey, err := keys.Generate(ctx, "vet-key", keystore.AlgorithmEd25519, []byte(testPassword))
	require.NoError(t, err)
	clinicKey, err := keys.Generate(ctx, "clinic-key", keystore.AlgorithmECDSAP256, []byte(testPassword))
	require.NoError(t, err)

	doc := []byte(`{"version":"1.0.0","certificateNumber":"AHC-2026-0001"}`)
	hash, err := signing.Hash(doc)
	require.NoError(t, err)

	signer := signing.NewSigner(keys)
	vetSig, err := signer.SignDetached(ctx, "vet-key", []byte(testPassword), hash)
	require.NoError(t, err)
	clinicSig, err := signer.SignDetached(ctx, "clinic-key", []byte(testPassword), hash)
	require.NoError(t, err)

	token, err = qr.EncodeEnvelope(&qr.Envelope{
		Version:         "1.0.0",
		Number:          "AHC-2026-0001",
		IssuedAt:        1767225600,
		Payload:         doc,
		Hash:            hash,
		VetSignature:    vetSig.Value,
		ClinicSignature: clinicSig.Value,
		VetKeyID:        vetSig.KeyID,
		ClinicKeyID:     clinicSig.KeyID,
	})
	require.NoError(t, err)

	vetPEM = filepath.Join(dir, "vet.pem")
	clinicPEM = filepath.Join(dir, "clinic.pem")
	require.NoError(t, os.WriteFile(vetPEM, []byte(vetKey.PublicKeyPEM), 0o600))
	require.NoError(t, os.WriteFile(clinicPEM, []byte(clinicKey.PublicKeyPEM), 0o600))

	return token, vetPEM, clinicPEM
}

func TestVerifyCmd_Run(t *testing.T) {
	token, vetPEM, clinicPEM := makeSignedToken(t, t.TempDir())

	cmd := &VerifyCmd{Token: token, VetKey: vetPEM, ClinicKey: clinicPEM}
	require.NoError(t, cmd.Run(context.Background()))
}

func TestVerifyCmd_SwappedKeys(t *testing.T) {
	token, vetPEM, clinicPEM := makeSignedToken(t, t.TempDir())

	cmd := &VerifyCmd{Token: token, VetKey: clinicPEM, ClinicKey: vetPEM}

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, signing.ErrVerification)
}

func TestDecodeCmd_Run(t *testing.T) {
	token, _, _ := makeSignedToken(t, t.TempDir())

	cmd := &DecodeCmd{Token: token}
	require.NoError(t, cmd.Run(context.Background()))
}

func TestDecodeCmd_MalformedToken(t *testing.T) {
	cmd := &DecodeCmd{Token: "HC1:not a token"}

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, qr.ErrEncoding)
}

func TestRegisterCmd_Run(t *testing.T) {
	tmpDir := t.TempDir()
	clinicID := uuid.Must(uuid.NewV7())
	workbook := []byte("not really a workbook")

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/clinics/"+clinicID.String()+"/certificates/register", r.URL.Path)
		_, _ = w.Write(workbook)
	}))
	defer srv.Close()

	output := filepath.Join(tmpDir, "register.xlsx")
	cmd := &RegisterCmd{
		ClinicID: clinicID.String(),
		Server:   srv.URL,
		Token:    "secret-token",
		Output:   output,
	}

	require.NoError(t, cmd.Run(context.Background()))
	assert.Equal(t, "Bearer secret-token", gotAuth)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, workbook, data)
}

func TestRegisterCmd_Denied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cmd := &RegisterCmd{
		ClinicID: uuid.Must(uuid.NewV7()).String(),
		Server:   srv.URL,
		Token:    "secret-token",
		Output:   filepath.Join(t.TempDir(), "register.xlsx"),
	}

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRegisterCmd_BadClinicID(t *testing.T) {
	cmd := &RegisterCmd{ClinicID: "not-a-uuid", Token: "secret-token"}

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid clinic id")
}
