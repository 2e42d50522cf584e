package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		ConstraintName: constraint,
		Message:        "fabricated for mapping",
	}
}

func TestMapPostgresError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, mapPostgresError(nil))
	})

	t.Run("non-postgres errors pass through untouched", func(t *testing.T) {
		err := errors.New("plain failure")
		require.Equal(t, err, mapPostgresError(err))
	})

	t.Run("certificate record constraint maps to its sentinel", func(t *testing.T) {
		got := mapPostgresError(pgError(pgerrcode.UniqueViolation, constraintCertRecord))
		require.ErrorIs(t, got, store.ErrCertificateExistsForRecord)
	})

	t.Run("certificate number constraint maps to its sentinel", func(t *testing.T) {
		got := mapPostgresError(pgError(pgerrcode.UniqueViolation, constraintCertNumber))
		require.ErrorIs(t, got, store.ErrCertificateNumberTaken)
	})

	t.Run("other unique violations keep the constraint name", func(t *testing.T) {
		got := mapPostgresError(pgError(pgerrcode.UniqueViolation, "uq_pets_microchip"))
		require.ErrorContains(t, got, "uq_pets_microchip")
		require.NotErrorIs(t, got, store.ErrCertificateExistsForRecord)
		require.NotErrorIs(t, got, store.ErrCertificateNumberTaken)
	})

	t.Run("missing record foreign key", func(t *testing.T) {
		got := mapPostgresError(pgError(pgerrcode.ForeignKeyViolation, "fk_certificates_record"))
		require.ErrorIs(t, got, store.ErrRecordNotFound)
	})

	t.Run("missing pet foreign keys", func(t *testing.T) {
		for _, constraint := range []string{"fk_records_pet", "fk_certificates_pet"} {
			got := mapPostgresError(pgError(pgerrcode.ForeignKeyViolation, constraint))
			require.ErrorIs(t, got, store.ErrPetNotFound)
		}
	})

	t.Run("serialization failures read as retryable", func(t *testing.T) {
		got := mapPostgresError(pgError(pgerrcode.SerializationFailure, ""))
		require.ErrorContains(t, got, "retryable")
	})

	t.Run("wrapped postgres errors still map", func(t *testing.T) {
		wrapped := fmt.Errorf("failed to create certificate: %w", pgError(pgerrcode.UniqueViolation, constraintCertNumber))
		require.ErrorIs(t, mapPostgresError(wrapped), store.ErrCertificateNumberTaken)
	})
}
