// Package records implements the medical record service and the lifecycle
// rules controlling when a record may still change. A record moves from
// created to signed to immutable and never back.
package records

import (
	"errors"
	"fmt"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
)

var (
	// ErrRecordImmutable is returned once a record has been frozen by
	// certificate issuance.
	ErrRecordImmutable = errors.New("record is immutable")

	// ErrVaccineRecordImmutable is returned for update attempts on
	// vaccination records, which never change once created.
	ErrVaccineRecordImmutable = errors.New("vaccination records cannot be modified")

	// ErrRecordSigned is returned when a signature blocks the mutation.
	ErrRecordSigned = errors.New("record is signed")

	// ErrInvalidRecord is returned for field-level validation failures.
	ErrInvalidRecord = errors.New("invalid medical record")
)

// State is the lifecycle position of a record.
type State string

const (
	StateCreated   State = "CREATED"
	StateSigned    State = "SIGNED"
	StateImmutable State = "IMMUTABLE"
)

// StateOf derives the lifecycle state from the record itself. Immutability
// dominates the signature.
func StateOf(rec *models.MedicalRecord) State {
	switch {
	case rec.Immutable:
		return StateImmutable
	case rec.IsSigned():
		return StateSigned
	default:
		return StateCreated
	}
}

// CanUpdate applies the mutation rules in order; the first matching rule
// wins. The creator is the staff member who wrote the record and may be nil
// when that account no longer resolves.
func CanUpdate(rec *models.MedicalRecord, actor, creator *models.Staff) error {
	if rec.Immutable {
		return fmt.Errorf("%w: record %s", ErrRecordImmutable, rec.RecordID)
	}

	if rec.Type == models.RecordTypeVaccine {
		return fmt.Errorf("%w: record %s", ErrVaccineRecordImmutable, rec.RecordID)
	}

	if rec.IsSigned() {
		return fmt.Errorf("%w: record %s", ErrRecordSigned, rec.RecordID)
	}

	return canMutate(rec, actor, creator)
}

// CanDelete applies the same rules as CanUpdate except that unsigned
// vaccination records may still be removed, and a signed record may be
// removed by its exact signer.
func CanDelete(rec *models.MedicalRecord, actor, creator *models.Staff) error {
	if rec.Immutable {
		return fmt.Errorf("%w: record %s", ErrRecordImmutable, rec.RecordID)
	}

	if rec.IsSigned() {
		if rec.Signature.SignerID == actor.StaffID {
			return nil
		}

		return fmt.Errorf("%w: only the signer may delete record %s", ErrRecordSigned, rec.RecordID)
	}

	return canMutate(rec, actor, creator)
}

// MarkImmutable freezes the record. The transition happens exactly once.
func MarkImmutable(rec *models.MedicalRecord) error {
	if rec.Immutable {
		return fmt.Errorf("%w: record %s", ErrRecordImmutable, rec.RecordID)
	}

	rec.Immutable = true

	return nil
}

func canMutate(rec *models.MedicalRecord, actor, creator *models.Staff) error {
	if actor.StaffID == rec.CreatorID {
		return nil
	}

	if creator != nil && creator.ClinicID != nil && actor.WorksAt(*creator.ClinicID) {
		return nil
	}

	return fmt.Errorf("%w: staff %s may not modify record %s", authz.ErrAccessDenied, actor.StaffID, rec.RecordID)
}
