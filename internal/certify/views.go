package certify

import (
	"time"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
)

// PetSummary identifies the certified pet.
type PetSummary struct {
	PetID     uuid.UUID `json:"pet_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	BirthDate time.Time `json:"birth_date"`
	Microchip string    `json:"microchip,omitempty"`
}

// RecordSummary identifies the vaccination record behind the certificate.
type RecordSummary struct {
	RecordID    uuid.UUID  `json:"record_id"`
	Type        string     `json:"type"`
	VaccineName string     `json:"vaccine_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	Immutable   bool       `json:"immutable"`
}

// VetSummary identifies the issuing veterinarian.
type VetSummary struct {
	StaffID       uuid.UUID `json:"staff_id"`
	Name          string    `json:"name"`
	LicenseNumber string    `json:"license_number,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
}

// ClinicSummary identifies the issuing clinic.
type ClinicSummary struct {
	ClinicID    uuid.UUID `json:"clinic_id"`
	Name        string    `json:"name"`
	City        string    `json:"city,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// CertificateView is the outward representation of an issued certificate.
type CertificateView struct {
	CertificateID   uuid.UUID     `json:"certificate_id"`
	Number          string        `json:"number"`
	Pet             PetSummary    `json:"pet"`
	Record          RecordSummary `json:"record"`
	Vet             VetSummary    `json:"vet"`
	Clinic          ClinicSummary `json:"clinic"`
	IssuedAt        time.Time     `json:"issued_at"`
	Payload         string        `json:"payload"`
	Hash            string        `json:"hash"`
	VetSignature    string        `json:"vet_signature"`
	ClinicSignature string        `json:"clinic_signature"`
}

func newCertificateView(cert *models.Certificate, rec *models.MedicalRecord, pet *models.Pet, vet *models.Staff, clinic *models.Clinic) *CertificateView {
	view := &CertificateView{
		CertificateID: cert.CertificateID,
		Number:        cert.Number,
		Pet: PetSummary{
			PetID:     pet.PetID,
			Name:      pet.Name,
			Species:   pet.Species,
			BirthDate: pet.BirthDate,
			Microchip: pet.Microchip,
		},
		Record: RecordSummary{
			RecordID:  rec.RecordID,
			Type:      rec.Type,
			CreatedAt: rec.CreatedAt,
			Immutable: rec.Immutable,
		},
		Vet: VetSummary{
			StaffID:       vet.StaffID,
			Name:          vet.FullName(),
			LicenseNumber: vet.LicenseNumber,
			Fingerprint:   vet.Fingerprint,
		},
		Clinic: ClinicSummary{
			ClinicID:    clinic.ClinicID,
			Name:        clinic.Name,
			City:        clinic.City,
			Fingerprint: clinic.Fingerprint,
		},
		IssuedAt:        cert.IssuedAt,
		Payload:         cert.Payload,
		Hash:            cert.Hash,
		VetSignature:    cert.VetSignature,
		ClinicSignature: cert.ClinicSignature,
	}

	if rec.Vaccine != nil {
		view.Record.VaccineName = rec.Vaccine.Name
	}

	if expires, ok := rec.ExpiresAt(); ok {
		view.Record.ValidUntil = &expires
	}

	return view
}
