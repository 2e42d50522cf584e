package models

import (
	"time"

	"github.com/google/uuid"
)

// StaffRole discriminates the kinds of people the platform knows about.
const (
	RoleOwner = "OWNER" // Pet owner, no clinic affiliation
	RoleVet   = "VET"   // Veterinarian, holds a signing key
	RoleAdmin = "ADMIN" // Clinic administrative staff
)

// Staff represents a person in the system: a pet owner, a veterinarian or a
// clinic administrator. Vets and admins belong to a clinic; vets additionally
// carry a signing key used for record signatures and certificate issuance.
type Staff struct {
	StaffID uuid.UUID // UUIDv7
	Role    string    // "OWNER", "VET", "ADMIN"
	Name    string
	Surname string
	Email   string

	// For clinic staff (vet, admin)
	ClinicID *uuid.UUID // nil for owners

	// For vets
	LicenseNumber string // Professional license, printed on certificates
	KeyID         string // Keystore reference for the private key
	PublicKey     string // PEM format (for display/export)
	Fingerprint   string // Base58-encoded SHA256(PKIX public key)

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwner reports whether this person is a pet owner.
func (s *Staff) IsOwner() bool {
	return s.Role == RoleOwner
}

// IsVet reports whether this person is a veterinarian.
func (s *Staff) IsVet() bool {
	return s.Role == RoleVet
}

// CanSignRecords reports whether this person may attach clinical signatures.
// Only active vets with a provisioned key qualify.
func (s *Staff) CanSignRecords() bool {
	return s.Role == RoleVet && s.Active && s.KeyID != ""
}

// CanIssueCertificates reports whether this person may issue health
// certificates. Same capability set as record signing.
func (s *Staff) CanIssueCertificates() bool {
	return s.CanSignRecords()
}

// WorksAt reports whether this person is clinic staff of the given clinic.
// Owners never work at a clinic.
func (s *Staff) WorksAt(clinicID uuid.UUID) bool {
	if s.Role == RoleOwner || s.ClinicID == nil {
		return false
	}
	return *s.ClinicID == clinicID && s.Active
}

// FullName returns "Name Surname" for display and payloads.
func (s *Staff) FullName() string {
	if s.Surname == "" {
		return s.Name
	}
	return s.Name + " " + s.Surname
}
