package models

import (
	"time"

	"github.com/google/uuid"
)

// Clinic represents a veterinary clinic. Each clinic holds its own signing
// key; the clinic counter-signature on a certificate is produced with it.
type Clinic struct {
	ClinicID uuid.UUID // UUIDv7
	Name     string
	Address  string
	City     string
	Country  string
	Phone    string

	KeyID       string // Keystore reference for the clinic private key
	PublicKey   string // PEM format (for display/export)
	Fingerprint string // Base58-encoded SHA256(PKIX public key)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullAddress returns the single-line address used on certificates.
func (c *Clinic) FullAddress() string {
	addr := c.Address
	if c.City != "" {
		addr += ", " + c.City
	}
	if c.Country != "" {
		addr += ", " + c.Country
	}
	return addr
}
