package signing

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
)

// Signature is a detached signature over digest bytes, together with the
// identity of the key that produced it.
type Signature struct {
	Value     string // Base64
	KeyID     string // Base58 fingerprint of the signing key
	Algorithm string
}

// Signer produces detached signatures with keys held in a KeyStore. The
// private key is only live inside the keystore callback and is wiped when the
// call returns.
type Signer struct {
	keys keystore.KeyStore
}

// NewSigner creates a signer backed by the given key store.
func NewSigner(keys keystore.KeyStore) *Signer {
	return &Signer{keys: keys}
}

// SignDetached signs the digest bytes identified by their hex encoding. The
// signature covers the raw digest, not the original payload: Ed25519 signs
// the 32 bytes as the message, ECDSA P-256 signs them as a pre-hashed input.
func (s *Signer) SignDetached(ctx context.Context, keyID string, password []byte, hashHex string) (*Signature, error) {
	digest, err := DecodeDigest(hashHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	var out *Signature
	err = s.keys.WithSigner(ctx, keyID, password, func(signer crypto.Signer, info *keystore.KeyInfo) error {
		raw, err := signDigest(signer, digest)
		if err != nil {
			return err
		}

		out = &Signature{
			Value:     base64.StdEncoding.EncodeToString(raw),
			KeyID:     info.Fingerprint,
			Algorithm: string(info.Algorithm),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	log.Debug().
		Str("key_id", keyID).
		Str("fingerprint", out.KeyID).
		Str("algorithm", out.Algorithm).
		Msg("Produced detached signature")

	return out, nil
}

// VerifyDetached checks a detached signature against the digest identified by
// its hex encoding, using a PKIX public key in PEM form.
func VerifyDetached(publicKeyPEM string, hashHex string, signatureB64 string) error {
	pub, err := keystore.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	digest, err := DecodeDigest(hashHex)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	raw, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid signature encoding: %w", ErrVerification, err)
	}

	switch key := pub.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(key, digest, raw) {
			return ErrVerification
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest, raw) {
			return ErrVerification
		}
	default:
		return fmt.Errorf("%w: unsupported public key type %T", ErrVerification, pub)
	}

	return nil
}

func signDigest(signer crypto.Signer, digest []byte) ([]byte, error) {
	switch key := signer.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(key, digest), nil
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, key, digest)
	default:
		return nil, fmt.Errorf("unsupported signer type %T", signer)
	}
}
