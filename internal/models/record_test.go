package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMedicalRecordExpiresAt(t *testing.T) {
	created := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

	t.Run("calendar months from creation", func(t *testing.T) {
		rec := &MedicalRecord{
			Type:      RecordTypeVaccine,
			Vaccine:   &VaccineDetails{Name: "Nobivac Rabies", ValidityMonths: 12, Rabies: true},
			CreatedAt: created,
		}
		expires, ok := rec.ExpiresAt()
		require.True(t, ok)
		require.Equal(t, time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), expires)
	})

	t.Run("no window without validity months", func(t *testing.T) {
		rec := &MedicalRecord{
			Type:      RecordTypeVaccine,
			Vaccine:   &VaccineDetails{Name: "Kennel Cough"},
			CreatedAt: created,
		}
		_, ok := rec.ExpiresAt()
		require.False(t, ok)
	})

	t.Run("non vaccine records never expire", func(t *testing.T) {
		rec := &MedicalRecord{Type: RecordTypeAnnualCheck, CreatedAt: created}
		_, ok := rec.ExpiresAt()
		require.False(t, ok)
		require.False(t, rec.ValidAt(created))
	})
}

func TestMedicalRecordValidAt(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &MedicalRecord{
		Type:      RecordTypeVaccine,
		Vaccine:   &VaccineDetails{Name: "Nobivac Rabies", ValidityMonths: 6, Rabies: true},
		CreatedAt: created,
	}

	require.True(t, rec.ValidAt(created.AddDate(0, 5, 27)))
	require.False(t, rec.ValidAt(created.AddDate(0, 6, 0)))
	require.True(t, rec.IsRabiesVaccination())
}

func TestStaffCapabilities(t *testing.T) {
	clinic := uuid.Must(uuid.NewV7())
	other := uuid.Must(uuid.NewV7())

	vet := &Staff{Role: RoleVet, ClinicID: &clinic, KeyID: "k1", Active: true}
	require.True(t, vet.CanSignRecords())
	require.True(t, vet.CanIssueCertificates())
	require.True(t, vet.WorksAt(clinic))
	require.False(t, vet.WorksAt(other))

	t.Run("inactive vet loses capabilities", func(t *testing.T) {
		former := &Staff{Role: RoleVet, ClinicID: &clinic, KeyID: "k1", Active: false}
		require.False(t, former.CanSignRecords())
		require.False(t, former.WorksAt(clinic))
	})

	t.Run("owner has no clinic capabilities", func(t *testing.T) {
		owner := &Staff{Role: RoleOwner, Active: true}
		require.True(t, owner.IsOwner())
		require.False(t, owner.CanSignRecords())
		require.False(t, owner.WorksAt(clinic))
	})

	t.Run("admin works at clinic but cannot sign", func(t *testing.T) {
		admin := &Staff{Role: RoleAdmin, ClinicID: &clinic, Active: true}
		require.True(t, admin.WorksAt(clinic))
		require.False(t, admin.CanSignRecords())
	})
}
