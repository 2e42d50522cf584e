package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// RecordStore implements store.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a new PostgreSQL-backed record store.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{
		pool: pool,
	}
}

const recordColumns = `
	record_id, pet_id, creator_id, type, description,
	vaccine_name, vaccine_lab, vaccine_batch, vaccine_validity_months, vaccine_rabies,
	signer_id, signature_key_id, signature_alg, signature_value, signed_at,
	immutable, created_at, updated_at
`

// CreateRecord inserts a new medical record. The vaccine sub-record and the
// clinical signature are flattened into nullable columns.
func (s *RecordStore) CreateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	query := `
		INSERT INTO medical_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	args := []any{
		rec.RecordID, rec.PetID, rec.CreatorID, rec.Type, rec.Description,
	}
	args = append(args, vaccineArgs(rec.Vaccine)...)
	args = append(args, signatureArgs(rec.Signature)...)
	args = append(args, rec.Immutable, rec.CreatedAt, rec.UpdatedAt)

	_, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("record_id", rec.RecordID.String()).
		Str("pet_id", rec.PetID.String()).
		Str("type", rec.Type).
		Bool("signed", rec.IsSigned()).
		Msg("Created medical record")

	return nil
}

// GetRecord retrieves a record by ID.
func (s *RecordStore) GetRecord(ctx context.Context, recordID uuid.UUID) (*models.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE record_id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", mapPostgresError(err))
	}

	return rec, nil
}

// UpdateRecord updates the mutable columns of a record. Signature and
// immutability are written elsewhere: the former at creation, the latter by
// certificate persistence.
func (s *RecordStore) UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	query := `
		UPDATE medical_records
		SET type = $2, description = $3,
		    vaccine_name = $4, vaccine_lab = $5, vaccine_batch = $6,
		    vaccine_validity_months = $7, vaccine_rabies = $8,
		    updated_at = now()
		WHERE record_id = $1
	`

	args := []any{rec.RecordID, rec.Type, rec.Description}
	args = append(args, vaccineArgs(rec.Vaccine)...)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRecordNotFound
	}

	log.Debug().Str("record_id", rec.RecordID.String()).Msg("Updated medical record")

	return nil
}

// DeleteRecord removes a record.
func (s *RecordStore) DeleteRecord(ctx context.Context, recordID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM medical_records WHERE record_id = $1`, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRecordNotFound
	}

	log.Debug().Str("record_id", recordID.String()).Msg("Deleted medical record")

	return nil
}

// ListRecordsByPet returns the pet's records newest first.
func (s *RecordStore) ListRecordsByPet(ctx context.Context, petID uuid.UUID, filter store.RecordFilter) ([]*models.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE pet_id = $1`
	args := []any{petID}

	if filter.Type != "" {
		query += ` AND type = $2`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	return s.queryRecords(ctx, query, args...)
}

// FindRabiesVaccinations returns signed rabies vaccinations newest first.
func (s *RecordStore) FindRabiesVaccinations(ctx context.Context, petID uuid.UUID) ([]*models.MedicalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM medical_records
		WHERE pet_id = $1
		  AND type = 'VACCINE'
		  AND vaccine_rabies IS TRUE
		  AND signature_value IS NOT NULL
		ORDER BY created_at DESC
	`

	return s.queryRecords(ctx, query, petID)
}

// FindCheckupsSince returns signed annual checks after the cutoff, newest first.
func (s *RecordStore) FindCheckupsSince(ctx context.Context, petID uuid.UUID, cutoff time.Time) ([]*models.MedicalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM medical_records
		WHERE pet_id = $1
		  AND type = 'ANNUAL_CHECK'
		  AND signature_value IS NOT NULL
		  AND created_at > $2
		ORDER BY created_at DESC
	`

	return s.queryRecords(ctx, query, petID, cutoff)
}

func (s *RecordStore) queryRecords(ctx context.Context, query string, args ...any) ([]*models.MedicalRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", mapPostgresError(err))
	}

	return result, nil
}

// scanRecord rebuilds a MedicalRecord from the flattened columns.
func scanRecord(row pgx.Row) (*models.MedicalRecord, error) {
	var rec models.MedicalRecord
	var vaccineName, vaccineLab, vaccineBatch *string
	var vaccineValidity *int
	var vaccineRabies *bool
	var signerID *uuid.UUID
	var sigKeyID, sigAlg, sigValue *string
	var signedAt *time.Time

	err := row.Scan(
		&rec.RecordID, &rec.PetID, &rec.CreatorID, &rec.Type, &rec.Description,
		&vaccineName, &vaccineLab, &vaccineBatch, &vaccineValidity, &vaccineRabies,
		&signerID, &sigKeyID, &sigAlg, &sigValue, &signedAt,
		&rec.Immutable, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vaccineName != nil {
		rec.Vaccine = &models.VaccineDetails{
			Name: *vaccineName,
		}
		if vaccineLab != nil {
			rec.Vaccine.Lab = *vaccineLab
		}
		if vaccineBatch != nil {
			rec.Vaccine.BatchNumber = *vaccineBatch
		}
		if vaccineValidity != nil {
			rec.Vaccine.ValidityMonths = *vaccineValidity
		}
		if vaccineRabies != nil {
			rec.Vaccine.Rabies = *vaccineRabies
		}
	}

	if sigValue != nil && signerID != nil {
		rec.Signature = &models.RecordSignature{
			SignerID: *signerID,
			Value:    *sigValue,
		}
		if sigKeyID != nil {
			rec.Signature.KeyID = *sigKeyID
		}
		if sigAlg != nil {
			rec.Signature.Algorithm = *sigAlg
		}
		if signedAt != nil {
			rec.Signature.SignedAt = *signedAt
		}
	}

	return &rec, nil
}

// vaccineArgs flattens the vaccine sub-record into insert/update arguments.
func vaccineArgs(v *models.VaccineDetails) []any {
	if v == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	return []any{v.Name, v.Lab, v.BatchNumber, v.ValidityMonths, v.Rabies}
}

// signatureArgs flattens the clinical signature into insert arguments.
func signatureArgs(sig *models.RecordSignature) []any {
	if sig == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	return []any{sig.SignerID, sig.KeyID, sig.Algorithm, sig.Value, sig.SignedAt}
}
