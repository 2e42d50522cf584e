package records

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
	"github.com/i-bosquet/petconnect-sub002/internal/store/memory"
)

const vetKeyPassword = "vet-password"

type serviceFixture struct {
	svc   *Service
	keys  *keystore.MemoryStore
	staff *memory.StaffStore

	clinicID uuid.UUID
	ownerID  uuid.UUID
	vetID    uuid.UUID
	petID    uuid.UUID

	vetKeyInfo *keystore.KeyInfo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	recordStore := memory.NewRecordStore()
	petStore := memory.NewPetStore()
	staffStore := memory.NewStaffStore()
	keys := keystore.NewMemoryStore()

	info, err := keys.Generate(ctx, "vet-key", keystore.AlgorithmEd25519, []byte(vetKeyPassword))
	require.NoError(t, err)

	f := &serviceFixture{
		svc:        NewService(recordStore, petStore, staffStore, signing.NewSigner(keys), authz.NewClinicGate()),
		keys:       keys,
		staff:      staffStore,
		clinicID:   uuid.Must(uuid.NewV7()),
		ownerID:    uuid.Must(uuid.NewV7()),
		vetID:      uuid.Must(uuid.NewV7()),
		petID:      uuid.Must(uuid.NewV7()),
		vetKeyInfo: info,
	}

	require.NoError(t, staffStore.CreateStaff(ctx, &models.Staff{
		StaffID: f.ownerID,
		Role:    models.RoleOwner,
		Name:    "Ana",
		Surname: "Romero",
		Active:  true,
	}))

	require.NoError(t, staffStore.CreateStaff(ctx, &models.Staff{
		StaffID:       f.vetID,
		Role:          models.RoleVet,
		Name:          "Luis",
		Surname:       "Ferrer",
		ClinicID:      &f.clinicID,
		LicenseNumber: "COLVET-4411",
		KeyID:         "vet-key",
		Active:        true,
	}))

	require.NoError(t, petStore.CreatePet(ctx, &models.Pet{
		PetID:          f.petID,
		Name:           "Mora",
		Species:        "DOG",
		BirthDate:      time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC),
		OwnerID:        f.ownerID,
		ActiveClinicID: &f.clinicID,
	}))

	return f
}

func (f *serviceFixture) addStaff(t *testing.T, role string, clinicID *uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.staff.CreateStaff(context.Background(), &models.Staff{
		StaffID:  id,
		Role:     role,
		ClinicID: clinicID,
		KeyID:    "vet-key",
		Active:   true,
	}))

	return id
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner creates an unsigned record", func(t *testing.T) {
		f := newServiceFixture(t)

		rec, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.ownerID,
			Type:        models.RecordTypeOther,
			Description: "limping after the walk",
		})
		require.NoError(t, err)
		require.Equal(t, f.ownerID, rec.CreatorID)
		require.False(t, rec.IsSigned())
		require.Equal(t, StateCreated, StateOf(rec))
	})

	t.Run("vet signs a vaccination at creation", func(t *testing.T) {
		f := newServiceFixture(t)

		rec, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeVaccine,
			Description: "annual rabies shot",
			Vaccine: &models.VaccineDetails{
				Name:           "Rabivac",
				ValidityMonths: 12,
				Rabies:         true,
			},
			KeyPassword: []byte(vetKeyPassword),
		})
		require.NoError(t, err)
		require.True(t, rec.IsSigned())
		require.Equal(t, f.vetID, rec.Signature.SignerID)

		digest, err := ContentDigest(rec)
		require.NoError(t, err)
		require.NoError(t, signing.VerifyDetached(f.vetKeyInfo.PublicKeyPEM, digest, rec.Signature.Value))
	})

	t.Run("staff of another clinic is refused", func(t *testing.T) {
		f := newServiceFixture(t)
		otherClinic := uuid.Must(uuid.NewV7())
		outsider := f.addStaff(t, models.RoleVet, &otherClinic)

		_, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     outsider,
			Type:        models.RecordTypeOther,
			Description: "should not land",
		})
		require.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("owners cannot sign", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.ownerID,
			Type:        models.RecordTypeOther,
			Description: "self-signed attempt",
			KeyPassword: []byte(vetKeyPassword),
		})
		require.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("wrong key password surfaces a signing error", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeVaccine,
			Description: "annual rabies shot",
			Vaccine:     &models.VaccineDetails{Name: "Rabivac", ValidityMonths: 12, Rabies: true},
			KeyPassword: []byte("not-the-password"),
		})
		require.ErrorIs(t, err, signing.ErrSigning)
	})

	t.Run("field validation", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Create(ctx, CreateInput{
			PetID:   f.petID,
			ActorID: f.vetID,
			Type:    "GROOMING",
		})
		require.ErrorIs(t, err, ErrInvalidRecord)

		_, err = f.svc.Create(ctx, CreateInput{
			PetID:   f.petID,
			ActorID: f.vetID,
			Type:    models.RecordTypeVaccine,
		})
		require.ErrorIs(t, err, ErrInvalidRecord)

		_, err = f.svc.Create(ctx, CreateInput{
			PetID:   f.petID,
			ActorID: f.vetID,
			Type:    models.RecordTypeIllness,
			Vaccine: &models.VaccineDetails{Name: "Rabivac"},
		})
		require.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("unknown pet", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Create(ctx, CreateInput{
			PetID:   uuid.Must(uuid.NewV7()),
			ActorID: f.vetID,
			Type:    models.RecordTypeOther,
		})
		require.ErrorIs(t, err, store.ErrPetNotFound)
	})
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *serviceFixture, in CreateInput) *models.MedicalRecord {
		t.Helper()
		rec, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		return rec
	}

	t.Run("creator updates an unsigned record", func(t *testing.T) {
		f := newServiceFixture(t)
		rec := create(t, f, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})

		updated, err := f.svc.Update(ctx, UpdateInput{
			RecordID:    rec.RecordID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeIllness,
			Description: "otitis, resolving",
		})
		require.NoError(t, err)
		require.Equal(t, "otitis, resolving", updated.Description)
	})

	t.Run("clinic colleague updates too", func(t *testing.T) {
		f := newServiceFixture(t)
		rec := create(t, f, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})
		colleague := f.addStaff(t, models.RoleVet, &f.clinicID)

		_, err := f.svc.Update(ctx, UpdateInput{
			RecordID:    rec.RecordID,
			ActorID:     colleague,
			Type:        models.RecordTypeIllness,
			Description: "otitis, second opinion",
		})
		require.NoError(t, err)
	})

	t.Run("records cannot become vaccinations", func(t *testing.T) {
		f := newServiceFixture(t)
		rec := create(t, f, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeOther, Description: "note"})

		_, err := f.svc.Update(ctx, UpdateInput{
			RecordID: rec.RecordID,
			ActorID:  f.vetID,
			Type:     models.RecordTypeVaccine,
		})
		require.ErrorIs(t, err, ErrVaccineRecordImmutable)
	})

	t.Run("signed records refuse updates", func(t *testing.T) {
		f := newServiceFixture(t)
		rec := create(t, f, CreateInput{
			PetID:       f.petID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeAnnualCheck,
			Description: "all good",
			KeyPassword: []byte(vetKeyPassword),
		})

		_, err := f.svc.Update(ctx, UpdateInput{
			RecordID:    rec.RecordID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeAnnualCheck,
			Description: "rewritten",
		})
		require.ErrorIs(t, err, ErrRecordSigned)
	})

	t.Run("outsiders are refused", func(t *testing.T) {
		f := newServiceFixture(t)
		rec := create(t, f, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})
		otherClinic := uuid.Must(uuid.NewV7())
		outsider := f.addStaff(t, models.RoleVet, &otherClinic)

		_, err := f.svc.Update(ctx, UpdateInput{
			RecordID:    rec.RecordID,
			ActorID:     outsider,
			Type:        models.RecordTypeIllness,
			Description: "hijack",
		})
		require.ErrorIs(t, err, authz.ErrAccessDenied)
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("creator deletes an unsigned record", func(t *testing.T) {
		f := newServiceFixture(t)
		rec, err := f.svc.Create(ctx, CreateInput{PetID: f.petID, ActorID: f.ownerID, Type: models.RecordTypeOther, Description: "note"})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, rec.RecordID, f.ownerID))

		_, err = f.svc.Get(ctx, rec.RecordID, f.ownerID)
		require.ErrorIs(t, err, store.ErrRecordNotFound)
	})

	t.Run("only the signer deletes a signed record", func(t *testing.T) {
		f := newServiceFixture(t)
		rec, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeAnnualCheck,
			Description: "all good",
			KeyPassword: []byte(vetKeyPassword),
		})
		require.NoError(t, err)

		colleague := f.addStaff(t, models.RoleVet, &f.clinicID)
		require.ErrorIs(t, f.svc.Delete(ctx, rec.RecordID, colleague), ErrRecordSigned)
		require.NoError(t, f.svc.Delete(ctx, rec.RecordID, f.vetID))
	})

	t.Run("unsigned vaccination records may be removed", func(t *testing.T) {
		f := newServiceFixture(t)
		rec, err := f.svc.Create(ctx, CreateInput{
			PetID:       f.petID,
			ActorID:     f.vetID,
			Type:        models.RecordTypeVaccine,
			Description: "logged but not administered here",
			Vaccine:     &models.VaccineDetails{Name: "Rabivac", ValidityMonths: 12, Rabies: true},
		})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, rec.RecordID, f.vetID))
	})
}

func TestServiceReads(t *testing.T) {
	ctx := context.Background()

	t.Run("owner and clinic staff may read", func(t *testing.T) {
		f := newServiceFixture(t)
		rec, err := f.svc.Create(ctx, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})
		require.NoError(t, err)

		got, err := f.svc.Get(ctx, rec.RecordID, f.ownerID)
		require.NoError(t, err)
		require.Equal(t, rec.RecordID, got.RecordID)

		list, err := f.svc.ListByPet(ctx, f.petID, f.vetID, store.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("type filter narrows the listing", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeOther, Description: "note"})
		require.NoError(t, err)

		list, err := f.svc.ListByPet(ctx, f.petID, f.vetID, store.RecordFilter{Type: models.RecordTypeIllness})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, models.RecordTypeIllness, list[0].Type)
	})

	t.Run("strangers are refused", func(t *testing.T) {
		f := newServiceFixture(t)
		rec, err := f.svc.Create(ctx, CreateInput{PetID: f.petID, ActorID: f.vetID, Type: models.RecordTypeIllness, Description: "otitis"})
		require.NoError(t, err)

		otherClinic := uuid.Must(uuid.NewV7())
		outsider := f.addStaff(t, models.RoleVet, &otherClinic)

		_, err = f.svc.Get(ctx, rec.RecordID, outsider)
		require.ErrorIs(t, err, authz.ErrAccessDenied)

		_, err = f.svc.ListByPet(ctx, f.petID, outsider, store.RecordFilter{})
		require.ErrorIs(t, err, authz.ErrAccessDenied)
	})
}
