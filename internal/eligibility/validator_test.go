package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store/memory"
)

var testNow = time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)

type recordOption func(*models.MedicalRecord)

func unsigned() recordOption {
	return func(rec *models.MedicalRecord) {
		rec.Signature = nil
	}
}

func nonRabies() recordOption {
	return func(rec *models.MedicalRecord) {
		rec.Vaccine.Rabies = false
	}
}

func seedVaccination(t *testing.T, records *memory.RecordStore, petID uuid.UUID, created time.Time, months int, opts ...recordOption) *models.MedicalRecord {
	t.Helper()

	rec := &models.MedicalRecord{
		RecordID:  uuid.Must(uuid.NewV7()),
		PetID:     petID,
		CreatorID: uuid.Must(uuid.NewV7()),
		Type:      models.RecordTypeVaccine,
		Vaccine: &models.VaccineDetails{
			Name:           "Rabivac",
			ValidityMonths: months,
			Rabies:         true,
		},
		Signature: &models.RecordSignature{
			SignerID:  uuid.Must(uuid.NewV7()),
			Algorithm: "Ed25519",
			Value:     "c2ln",
			SignedAt:  created,
		},
		CreatedAt: created,
	}

	for _, opt := range opts {
		opt(rec)
	}

	require.NoError(t, records.CreateRecord(context.Background(), rec))

	return rec
}

func seedCheckup(t *testing.T, records *memory.RecordStore, petID uuid.UUID, created time.Time, opts ...recordOption) {
	t.Helper()

	rec := &models.MedicalRecord{
		RecordID:  uuid.Must(uuid.NewV7()),
		PetID:     petID,
		CreatorID: uuid.Must(uuid.NewV7()),
		Type:      models.RecordTypeAnnualCheck,
		Signature: &models.RecordSignature{
			SignerID:  uuid.Must(uuid.NewV7()),
			Algorithm: "Ed25519",
			Value:     "c2ln",
			SignedAt:  created,
		},
		CreatedAt: created,
	}

	for _, opt := range opts {
		opt(rec)
	}

	require.NoError(t, records.CreateRecord(context.Background(), rec))
}

func TestCheckCertificateEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("valid rabies and recent checkup", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		want := seedVaccination(t, records, petID, testNow.AddDate(0, -3, 0), 12)
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		got, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.NoError(t, err)
		require.Equal(t, want.RecordID, got.RecordID)
	})

	t.Run("newest valid vaccination wins", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -10, 0), 12)
		newest := seedVaccination(t, records, petID, testNow.AddDate(0, -1, 0), 12)
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		got, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.NoError(t, err)
		require.Equal(t, newest.RecordID, got.RecordID)
	})

	t.Run("scan skips expired vaccinations", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		// Newest expires quickly; the older long-lived one still counts.
		older := seedVaccination(t, records, petID, testNow.AddDate(0, -10, 0), 36)
		seedVaccination(t, records, petID, testNow.AddDate(0, -6, 0), 3)
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		got, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.NoError(t, err)
		require.Equal(t, older.RecordID, got.RecordID)
	})

	t.Run("no vaccinations at all", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRabiesVaccine)
	})

	t.Run("expired vaccination", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -13, 0), 12)
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRabiesVaccine)
	})

	t.Run("unsigned vaccination never counts", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -1, 0), 12, unsigned())
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRabiesVaccine)
	})

	t.Run("non-rabies vaccination never counts", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -1, 0), 12, nonRabies())
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0))

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRabiesVaccine)
	})

	t.Run("missing checkup reports the cutoff", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -3, 0), 12)

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRecentCheckup)
		require.ErrorContains(t, err, "2025-05-15")
	})

	t.Run("stale checkup", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -3, 0), 12)
		seedCheckup(t, records, petID, testNow.AddDate(0, -13, 0))

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRecentCheckup)
	})

	t.Run("unsigned checkup never counts", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		seedVaccination(t, records, petID, testNow.AddDate(0, -3, 0), 12)
		seedCheckup(t, records, petID, testNow.AddDate(0, -2, 0), unsigned())

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRecentCheckup)
	})

	t.Run("rabies failure wins when both are missing", func(t *testing.T) {
		records := memory.NewRecordStore()
		petID := uuid.Must(uuid.NewV7())

		_, err := NewValidator(records).CheckCertificateEligibility(ctx, petID, testNow)
		require.ErrorIs(t, err, ErrMissingRabiesVaccine)
	})
}
