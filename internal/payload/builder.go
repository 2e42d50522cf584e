// Package payload builds the canonical certificate document that gets
// hashed and signed. Encoding must be deterministic: the document is a
// fixed-order struct, times are normalised to UTC before formatting, and
// the schema carries an explicit version so verifiers can dispatch on it.
package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// SchemaVersion identifies the payload layout. Bump it whenever a field is
// added, removed or renamed.
const SchemaVersion = "1.0.0"

const dateFormat = "2006-01-02"

// Document is the certificate payload. Field order is part of the wire
// format: encoding/json emits struct fields in declaration order, which is
// what keeps equal inputs producing byte-identical payloads.
type Document struct {
	Version  string         `json:"version"`
	Number   string         `json:"number"`
	IssuedAt string         `json:"issuedAt"`
	Pet      PetSection     `json:"pet"`
	Owner    OwnerSection   `json:"owner"`
	Vaccine  VaccineSection `json:"vaccine"`
	Vet      VetSection     `json:"vet"`
	Clinic   ClinicSection  `json:"clinic"`
}

type PetSection struct {
	Name      string `json:"name"`
	Species   string `json:"species"`
	Breed     string `json:"breed,omitempty"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender,omitempty"`
	Microchip string `json:"microchip,omitempty"`
}

type OwnerSection struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type VaccineSection struct {
	Name       string `json:"name"`
	Lab        string `json:"lab,omitempty"`
	Batch      string `json:"batch,omitempty"`
	ValidFrom  string `json:"validFrom"`
	ValidUntil string `json:"validUntil"`
}

type VetSection struct {
	Name        string `json:"name"`
	License     string `json:"license"`
	Fingerprint string `json:"fingerprint"`
}

type ClinicSection struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint"`
}

// Input carries the already-resolved entities a certificate is built from.
// The issuer loads them once and hands them over so the builder stays free
// of authorization concerns.
type Input struct {
	Number   string
	IssuedAt time.Time
	Record   *models.MedicalRecord
	Pet      *models.Pet
	Owner    *models.Staff
	Vet      *models.Staff
	Clinic   *models.Clinic
}

// Builder renders certificate payloads. It only reaches back into the pet
// directory to resolve the breed name.
type Builder struct {
	pets store.PetDirectory
}

func NewBuilder(pets store.PetDirectory) *Builder {
	return &Builder{pets: pets}
}

// Build renders the canonical payload for a vaccination certificate. Equal
// inputs yield byte-identical output.
func (b *Builder) Build(ctx context.Context, in Input) (string, error) {
	if in.Record == nil || in.Record.Vaccine == nil {
		return "", fmt.Errorf("certificate payload requires a vaccination record")
	}

	if in.Pet == nil || in.Owner == nil || in.Vet == nil || in.Clinic == nil {
		return "", fmt.Errorf("certificate payload requires pet, owner, vet and clinic")
	}

	validUntil, ok := in.Record.ExpiresAt()
	if !ok {
		return "", fmt.Errorf("vaccination record %s has no validity window", in.Record.RecordID)
	}

	breed, err := b.breedName(ctx, in.Pet.BreedID)
	if err != nil {
		return "", err
	}

	doc := Document{
		Version:  SchemaVersion,
		Number:   in.Number,
		IssuedAt: in.IssuedAt.UTC().Format(time.RFC3339),
		Pet: PetSection{
			Name:      in.Pet.Name,
			Species:   in.Pet.Species,
			Breed:     breed,
			BirthDate: in.Pet.BirthDate.UTC().Format(dateFormat),
			Gender:    in.Pet.Gender,
			Microchip: in.Pet.Microchip,
		},
		Owner: OwnerSection{
			Name:  in.Owner.FullName(),
			Email: in.Owner.Email,
		},
		Vaccine: VaccineSection{
			Name:       in.Record.Vaccine.Name,
			Lab:        in.Record.Vaccine.Lab,
			Batch:      in.Record.Vaccine.BatchNumber,
			ValidFrom:  in.Record.CreatedAt.UTC().Format(dateFormat),
			ValidUntil: validUntil.UTC().Format(dateFormat),
		},
		Vet: VetSection{
			Name:        in.Vet.FullName(),
			License:     in.Vet.LicenseNumber,
			Fingerprint: in.Vet.Fingerprint,
		},
		Clinic: ClinicSection{
			Name:        in.Clinic.Name,
			Address:     in.Clinic.FullAddress(),
			Fingerprint: in.Clinic.Fingerprint,
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode certificate payload: %w", err)
	}

	return string(data), nil
}

func (b *Builder) breedName(ctx context.Context, breedID *uuid.UUID) (string, error) {
	if breedID == nil {
		return "", nil
	}

	breed, err := b.pets.FindBreed(ctx, *breedID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve breed: %w", err)
	}

	return breed.Name, nil
}
