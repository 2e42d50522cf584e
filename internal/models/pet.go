package models

import (
	"time"

	"github.com/google/uuid"
)

// Pet represents an animal registered on the platform. The active clinic is
// the clinic currently responsible for the pet's care; certificate issuance
// is restricted to vets of that clinic.
type Pet struct {
	PetID          uuid.UUID // UUIDv7
	Name           string
	Species        string     // "DOG", "CAT", "FERRET", ...
	BreedID        *uuid.UUID // nil for mixed/unknown breed
	BirthDate      time.Time
	Gender         string
	Microchip      string // Unique chip number, printed on certificates
	OwnerID        uuid.UUID
	ActiveClinicID *uuid.UUID // nil when the pet is not under clinic care
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UnderCareOf reports whether the given clinic is the pet's active clinic.
func (p *Pet) UnderCareOf(clinicID uuid.UUID) bool {
	return p.ActiveClinicID != nil && *p.ActiveClinicID == clinicID
}

// Breed is a catalog entry pets reference by ID.
type Breed struct {
	BreedID uuid.UUID
	Name    string
	Species string
}
