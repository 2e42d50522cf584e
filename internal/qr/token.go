// Package qr encodes issued certificates as compact scannable tokens:
// "HC1:" + base45(zlib(cbor(envelope))). The pipeline is lossless, so a
// decoded token carries everything needed for offline verification.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zlib"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/payload"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
)

// TokenPrefix marks the token format on the wire.
const TokenPrefix = "HC1:"

// ErrEncoding wraps every failure in the encode or decode pipeline.
var ErrEncoding = errors.New("token encoding failed")

// Envelope is the CBOR document inside a token. Short keys keep the token
// within comfortable QR alphanumeric capacity.
type Envelope struct {
	Version         string `cbor:"ver"`
	Number          string `cbor:"num"`
	IssuedAt        int64  `cbor:"iat"`
	Payload         []byte `cbor:"pay"`
	Hash            string `cbor:"hsh"`
	VetSignature    string `cbor:"vsg"`
	ClinicSignature string `cbor:"csg"`
	VetKeyID        string `cbor:"vki"`
	ClinicKeyID     string `cbor:"cki"`
}

var encMode, encModeErr = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()

// Encode renders a persisted certificate as a scannable token.
func Encode(cert *models.Certificate) (string, error) {
	return EncodeEnvelope(&Envelope{
		Version:         payload.SchemaVersion,
		Number:          cert.Number,
		IssuedAt:        cert.IssuedAt.Unix(),
		Payload:         []byte(cert.Payload),
		Hash:            cert.Hash,
		VetSignature:    cert.VetSignature,
		ClinicSignature: cert.ClinicSignature,
		VetKeyID:        cert.VetKeyID,
		ClinicKeyID:     cert.ClinicKeyID,
	})
}

// EncodeEnvelope runs the cbor, zlib and base45 pipeline over the envelope.
func EncodeEnvelope(env *Envelope) (string, error) {
	if encModeErr != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, encModeErr)
	}

	raw, err := encMode.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return TokenPrefix + base45Encode(buf.Bytes()), nil
}

// Decode reverses Encode. Malformed prefix, base45, zlib or cbor input all
// surface as ErrEncoding.
func Decode(token string) (*Envelope, error) {
	body, found := strings.CutPrefix(token, TokenPrefix)
	if !found {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrEncoding, TokenPrefix)
	}

	compressed, err := base45Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	defer zr.Close() //nolint:errcheck // reader is fully drained below

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	var env Envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return &env, nil
}

// Verify recomputes the payload digest and checks both detached signatures
// against the given public keys.
func Verify(env *Envelope, vetPublicKeyPEM, clinicPublicKeyPEM string) error {
	digest, err := signing.Hash(env.Payload)
	if err != nil {
		return err
	}

	if digest != env.Hash {
		return fmt.Errorf("%w: payload digest does not match hsh", signing.ErrVerification)
	}

	if err := signing.VerifyDetached(vetPublicKeyPEM, env.Hash, env.VetSignature); err != nil {
		return fmt.Errorf("vet signature: %w", err)
	}

	if err := signing.VerifyDetached(clinicPublicKeyPEM, env.Hash, env.ClinicSignature); err != nil {
		return fmt.Errorf("clinic signature: %w", err)
	}

	return nil
}
