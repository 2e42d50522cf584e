package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is an issued animal health certificate. Exactly one certificate
// exists per source record, the number is unique across the whole system, and
// both signatures cover the same SHA-256 digest of the canonical payload.
type Certificate struct {
	CertificateID uuid.UUID // UUIDv7
	RecordID      uuid.UUID // Source rabies vaccination record (unique)
	Number        string    // Caller-supplied, globally unique
	PetID         uuid.UUID
	VetID         uuid.UUID // Issuing vet
	ClinicID      uuid.UUID // Issuing clinic

	Payload string // Canonical JSON payload, exact signed bytes
	Hash    string // Lowercase SHA-256 hex of Payload

	VetSignature    string // Base64 detached signature over the digest bytes
	ClinicSignature string // Base64, same digest
	VetKeyID        string // Base58 fingerprint of the vet key
	ClinicKeyID     string // Base58 fingerprint of the clinic key

	IssuedAt time.Time
}
