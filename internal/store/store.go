package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrRecordNotFound      = errors.New("medical record not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrPetNotFound         = errors.New("pet not found")
	ErrBreedNotFound       = errors.New("breed not found")
	ErrStaffNotFound       = errors.New("staff member not found")
	ErrClinicNotFound      = errors.New("clinic not found")

	// Uniqueness violations surfaced by certificate persistence. Postgres maps
	// constraint violations onto these so racing issuers see the same errors
	// the pre-flight checks produce.
	ErrCertificateExistsForRecord = errors.New("certificate already exists for record")
	ErrCertificateNumberTaken     = errors.New("certificate number already exists")
)

// RecordFilter narrows record listings.
type RecordFilter struct {
	Type  string // empty matches all types
	Limit int    // 0 means no limit
}

// RecordStore defines the interface for medical record persistence.
// Lifecycle rules (who may update or delete, when a record freezes) are
// enforced above the store; implementations only guarantee storage semantics
// and newest-first ordering on the query methods.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *models.MedicalRecord) error
	GetRecord(ctx context.Context, recordID uuid.UUID) (*models.MedicalRecord, error)
	UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error
	DeleteRecord(ctx context.Context, recordID uuid.UUID) error
	ListRecordsByPet(ctx context.Context, petID uuid.UUID, filter RecordFilter) ([]*models.MedicalRecord, error)

	// FindRabiesVaccinations returns the pet's signed rabies VACCINE records,
	// newest first. Validity is evaluated by the caller.
	FindRabiesVaccinations(ctx context.Context, petID uuid.UUID) ([]*models.MedicalRecord, error)

	// FindCheckupsSince returns the pet's signed ANNUAL_CHECK records created
	// strictly after the cutoff, newest first.
	FindCheckupsSince(ctx context.Context, petID uuid.UUID, cutoff time.Time) ([]*models.MedicalRecord, error)
}

// CertificateStore defines the interface for certificate persistence.
type CertificateStore interface {
	// CreateCertificate persists the certificate and marks the source record
	// immutable as one atomic unit: after it returns nil the record is frozen,
	// and after an error neither change is visible.
	CreateCertificate(ctx context.Context, cert *models.Certificate) error

	GetCertificate(ctx context.Context, certificateID uuid.UUID) (*models.Certificate, error)
	ListCertificatesByPet(ctx context.Context, petID uuid.UUID) ([]*models.Certificate, error)
	ListCertificatesByClinic(ctx context.Context, clinicID uuid.UUID) ([]*models.Certificate, error)
	ExistsForRecord(ctx context.Context, recordID uuid.UUID) (bool, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

// PetDirectory resolves pets and the breed catalog. Deployments either serve
// it from the local database or from the upstream pet registry service.
type PetDirectory interface {
	FindPet(ctx context.Context, petID uuid.UUID) (*models.Pet, error)
	FindBreed(ctx context.Context, breedID uuid.UUID) (*models.Breed, error)
}

// StaffDirectory resolves staff members.
type StaffDirectory interface {
	FindStaff(ctx context.Context, staffID uuid.UUID) (*models.Staff, error)

	// FindVet resolves a staff member and fails with ErrStaffNotFound unless
	// the member is a veterinarian.
	FindVet(ctx context.Context, staffID uuid.UUID) (*models.Staff, error)
}

// ClinicDirectory resolves clinics.
type ClinicDirectory interface {
	FindClinic(ctx context.Context, clinicID uuid.UUID) (*models.Clinic, error)
}
