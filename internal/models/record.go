package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordType classifies a clinical entry.
const (
	RecordTypeVaccine     = "VACCINE"
	RecordTypeIllness     = "ILLNESS"
	RecordTypeAnnualCheck = "ANNUAL_CHECK"
	RecordTypeFirstVisit  = "FIRST_VISIT"
	RecordTypeUrgency     = "URGENCY"
	RecordTypeOther       = "OTHER"
)

// RecordTypes lists every valid record type, in display order.
var RecordTypes = []string{
	RecordTypeVaccine,
	RecordTypeIllness,
	RecordTypeAnnualCheck,
	RecordTypeFirstVisit,
	RecordTypeUrgency,
	RecordTypeOther,
}

// ValidRecordType reports whether t is a known record type.
func ValidRecordType(t string) bool {
	for _, rt := range RecordTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// VaccineDetails is the vaccine sub-record carried only by VACCINE entries.
type VaccineDetails struct {
	Name           string
	Lab            string
	BatchNumber    string
	ValidityMonths int  // 0 means no defined validity window
	Rabies         bool // Rabies vaccines gate certificate eligibility
}

// RecordSignature is a detached clinical signature attached at creation time
// by the vet that authored the record. The value covers the SHA-256 digest of
// the record's canonical content.
type RecordSignature struct {
	SignerID  uuid.UUID // Vet that signed
	KeyID     string    // Base58 fingerprint of the signing key
	Algorithm string    // "Ed25519" or "ECDSA-P256"
	Value     string    // Base64 detached signature over the digest bytes
	SignedAt  time.Time
}

// MedicalRecord is one entry in a pet's clinical history. Its lifecycle is
// Created -> (Signed at creation)? -> Immutable; the immutable flag is set
// exactly once, in the same transaction that persists a certificate built
// from the record.
type MedicalRecord struct {
	RecordID    uuid.UUID // UUIDv7
	PetID       uuid.UUID
	CreatorID   uuid.UUID // Staff member that authored the entry
	Type        string
	Description string
	Vaccine     *VaccineDetails  // nil unless Type == VACCINE
	Signature   *RecordSignature // nil while unsigned
	Immutable   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSigned reports whether a clinical signature is attached.
func (r *MedicalRecord) IsSigned() bool {
	return r.Signature != nil
}

// IsRabiesVaccination reports whether this is a rabies VACCINE entry.
func (r *MedicalRecord) IsRabiesVaccination() bool {
	return r.Type == RecordTypeVaccine && r.Vaccine != nil && r.Vaccine.Rabies
}

// ExpiresAt returns the end of the vaccine validity window, counted in
// calendar months from creation. ok is false when the record is not a
// vaccine or has no validity period.
func (r *MedicalRecord) ExpiresAt() (time.Time, bool) {
	if r.Type != RecordTypeVaccine || r.Vaccine == nil || r.Vaccine.ValidityMonths <= 0 {
		return time.Time{}, false
	}
	return r.CreatedAt.AddDate(0, r.Vaccine.ValidityMonths, 0), true
}

// ValidAt reports whether the vaccine validity window covers the given time.
func (r *MedicalRecord) ValidAt(now time.Time) bool {
	expires, ok := r.ExpiresAt()
	if !ok {
		return false
	}
	return expires.After(now)
}
