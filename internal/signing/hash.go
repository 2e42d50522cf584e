package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrHashing is returned when a digest cannot be produced.
	ErrHashing = errors.New("hashing failed")

	// ErrSigning is returned when a detached signature cannot be produced.
	// The underlying cause is wrapped; key material never appears in it.
	ErrSigning = errors.New("signing failed")

	// ErrVerification is returned when a detached signature does not match.
	ErrVerification = errors.New("signature verification failed")
)

// Hash returns the lowercase hex SHA-256 digest of data. Hashing is
// deterministic: equal inputs always produce equal digests.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrHashing)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DecodeDigest converts a hex digest back into the raw bytes that detached
// signatures cover.
func DecodeDigest(hashHex string) ([]byte, error) {
	digest, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid digest encoding: %w", ErrHashing, err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("%w: digest must be %d bytes, got %d", ErrHashing, sha256.Size, len(digest))
	}

	return digest, nil
}
