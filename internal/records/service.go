package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
	"github.com/i-bosquet/petconnect-sub002/internal/telemetry"
)

// Service owns medical record mutations and actor-aware reads.
type Service struct {
	records store.RecordStore
	pets    store.PetDirectory
	staff   store.StaffDirectory
	signer  *signing.Signer
	gate    authz.Gate
	now     func() time.Time
}

func NewService(records store.RecordStore, pets store.PetDirectory, staff store.StaffDirectory, signer *signing.Signer, gate authz.Gate) *Service {
	return &Service{
		records: records,
		pets:    pets,
		staff:   staff,
		signer:  signer,
		gate:    gate,
		now:     time.Now,
	}
}

// CreateInput describes a new medical record.
type CreateInput struct {
	PetID       uuid.UUID
	ActorID     uuid.UUID
	Type        string
	Description string
	Vaccine     *models.VaccineDetails

	// KeyPassword, when present, signs the record at creation with the
	// creating vet's key. The slice is not retained.
	KeyPassword []byte
}

// UpdateInput carries the mutable fields of a record.
type UpdateInput struct {
	RecordID    uuid.UUID
	ActorID     uuid.UUID
	Type        string
	Description string
	Vaccine     *models.VaccineDetails
}

// Create validates, optionally signs, and persists a new record. Signing at
// creation is restricted to active vets with a registered key; the signature
// covers the digest of the record's canonical content.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.MedicalRecord, error) {
	actor, err := s.staff.FindStaff(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}

	pet, err := s.pets.FindPet(ctx, in.PetID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CanAccessPet(actor, pet); err != nil {
		return nil, err
	}

	if err := validateFields(in.Type, in.Vaccine); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &models.MedicalRecord{
		RecordID:    uuid.Must(uuid.NewV7()),
		PetID:       pet.PetID,
		CreatorID:   actor.StaffID,
		Type:        in.Type,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Vaccine != nil {
		vaccine := *in.Vaccine
		rec.Vaccine = &vaccine
	}

	if in.KeyPassword != nil {
		if err := s.sign(ctx, rec, actor, in.KeyPassword); err != nil {
			return nil, err
		}
	}

	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	metrics := telemetry.GetMetrics()
	metrics.RecordsCreatedTotal.Add(ctx, 1)
	if rec.IsSigned() {
		metrics.RecordsSignedTotal.Add(ctx, 1)
	}

	log.Info().
		Str("record_id", rec.RecordID.String()).
		Str("pet_id", rec.PetID.String()).
		Str("type", rec.Type).
		Bool("signed", rec.IsSigned()).
		Msg("Created medical record")

	return rec, nil
}

// Update rewrites a record's type, description and vaccine details, subject
// to the lifecycle rules. A record can never become a vaccination.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*models.MedicalRecord, error) {
	rec, actor, creator, err := s.loadForMutation(ctx, in.RecordID, in.ActorID)
	if err != nil {
		return nil, err
	}

	if err := CanUpdate(rec, actor, creator); err != nil {
		return nil, err
	}

	if in.Type == models.RecordTypeVaccine {
		return nil, fmt.Errorf("%w: records cannot become vaccinations after creation", ErrVaccineRecordImmutable)
	}

	if err := validateFields(in.Type, in.Vaccine); err != nil {
		return nil, err
	}

	rec.Type = in.Type
	rec.Description = in.Description
	rec.Vaccine = nil
	rec.UpdatedAt = s.now().UTC()

	if err := s.records.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("record_id", rec.RecordID.String()).
		Str("type", rec.Type).
		Msg("Updated medical record")

	return rec, nil
}

// Delete removes a record, subject to the lifecycle rules.
func (s *Service) Delete(ctx context.Context, recordID, actorID uuid.UUID) error {
	rec, actor, creator, err := s.loadForMutation(ctx, recordID, actorID)
	if err != nil {
		return err
	}

	if err := CanDelete(rec, actor, creator); err != nil {
		return err
	}

	if err := s.records.DeleteRecord(ctx, recordID); err != nil {
		return err
	}

	log.Info().
		Str("record_id", recordID.String()).
		Str("actor_id", actorID.String()).
		Msg("Deleted medical record")

	return nil
}

// Get returns a single record to an actor allowed to read the pet's data.
func (s *Service) Get(ctx context.Context, recordID, actorID uuid.UUID) (*models.MedicalRecord, error) {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRead(ctx, rec.PetID, actorID); err != nil {
		return nil, err
	}

	return rec, nil
}

// ListByPet returns a pet's records, newest first, to an authorized actor.
func (s *Service) ListByPet(ctx context.Context, petID, actorID uuid.UUID, filter store.RecordFilter) ([]*models.MedicalRecord, error) {
	if err := s.authorizeRead(ctx, petID, actorID); err != nil {
		return nil, err
	}

	return s.records.ListRecordsByPet(ctx, petID, filter)
}

func (s *Service) sign(ctx context.Context, rec *models.MedicalRecord, actor *models.Staff, password []byte) error {
	if !actor.CanSignRecords() {
		return fmt.Errorf("%w: only active vets with a registered key may sign records", authz.ErrAccessDenied)
	}

	digest, err := ContentDigest(rec)
	if err != nil {
		return err
	}

	sig, err := s.signer.SignDetached(ctx, actor.KeyID, password, digest)
	if err != nil {
		return err
	}

	rec.Signature = &models.RecordSignature{
		SignerID:  actor.StaffID,
		KeyID:     sig.KeyID,
		Algorithm: sig.Algorithm,
		Value:     sig.Value,
		SignedAt:  s.now().UTC(),
	}

	return nil
}

func (s *Service) loadForMutation(ctx context.Context, recordID, actorID uuid.UUID) (*models.MedicalRecord, *models.Staff, *models.Staff, error) {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, nil, nil, err
	}

	actor, err := s.staff.FindStaff(ctx, actorID)
	if err != nil {
		return nil, nil, nil, err
	}

	creator, err := s.staff.FindStaff(ctx, rec.CreatorID)
	if err != nil && !errors.Is(err, store.ErrStaffNotFound) {
		return nil, nil, nil, err
	}

	return rec, actor, creator, nil
}

func (s *Service) authorizeRead(ctx context.Context, petID, actorID uuid.UUID) error {
	actor, err := s.staff.FindStaff(ctx, actorID)
	if err != nil {
		return err
	}

	pet, err := s.pets.FindPet(ctx, petID)
	if err != nil {
		return err
	}

	return s.gate.CanAccessPet(actor, pet)
}

func validateFields(recordType string, vaccine *models.VaccineDetails) error {
	if !models.ValidRecordType(recordType) {
		return fmt.Errorf("%w: unknown record type %q", ErrInvalidRecord, recordType)
	}

	if recordType == models.RecordTypeVaccine && vaccine == nil {
		return fmt.Errorf("%w: vaccination records require vaccine details", ErrInvalidRecord)
	}

	if recordType != models.RecordTypeVaccine && vaccine != nil {
		return fmt.Errorf("%w: vaccine details require a vaccination record", ErrInvalidRecord)
	}

	if vaccine != nil && vaccine.Name == "" {
		return fmt.Errorf("%w: vaccine name is required", ErrInvalidRecord)
	}

	return nil
}
