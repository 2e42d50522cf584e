package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// CertificateStore implements store.CertificateStore using PostgreSQL.
type CertificateStore struct {
	pool *pgxpool.Pool
}

// NewCertificateStore creates a new PostgreSQL-backed certificate store.
func NewCertificateStore(pool *pgxpool.Pool) *CertificateStore {
	return &CertificateStore{
		pool: pool,
	}
}

const certificateColumns = `
	certificate_id, record_id, number, pet_id, vet_id, clinic_id,
	payload, hash, vet_signature, clinic_signature, vet_key_id, clinic_key_id,
	issued_at
`

// CreateCertificate inserts the certificate and marks the source record
// immutable in a single transaction. Unique violations on the record and
// number constraints come back as the store sentinels.
func (s *CertificateStore) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	insert := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, insert,
		cert.CertificateID, cert.RecordID, cert.Number, cert.PetID, cert.VetID, cert.ClinicID,
		cert.Payload, cert.Hash, cert.VetSignature, cert.ClinicSignature, cert.VetKeyID, cert.ClinicKeyID,
		cert.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", mapPostgresError(err))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE medical_records
		SET immutable = TRUE, updated_at = now()
		WHERE record_id = $1
	`, cert.RecordID)
	if err != nil {
		return fmt.Errorf("failed to freeze record: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRecordNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit certificate: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("certificate_id", cert.CertificateID.String()).
		Str("record_id", cert.RecordID.String()).
		Str("number", cert.Number).
		Msg("Created certificate and froze source record")

	return nil
}

// GetCertificate retrieves a certificate by ID.
func (s *CertificateStore) GetCertificate(ctx context.Context, certificateID uuid.UUID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE certificate_id = $1`

	cert, err := scanCertificate(s.pool.QueryRow(ctx, query, certificateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", mapPostgresError(err))
	}

	return cert, nil
}

// ListCertificatesByPet returns the pet's certificates newest first.
func (s *CertificateStore) ListCertificatesByPet(ctx context.Context, petID uuid.UUID) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE pet_id = $1
		ORDER BY issued_at DESC
	`

	return s.queryCertificates(ctx, query, petID)
}

// ListCertificatesByClinic returns the clinic's certificates newest first.
func (s *CertificateStore) ListCertificatesByClinic(ctx context.Context, clinicID uuid.UUID) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE clinic_id = $1
		ORDER BY issued_at DESC
	`

	return s.queryCertificates(ctx, query, clinicID)
}

// ExistsForRecord reports whether a certificate exists for the record.
func (s *CertificateStore) ExistsForRecord(ctx context.Context, recordID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM certificates WHERE record_id = $1)`, recordID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check record certificate: %w", mapPostgresError(err))
	}

	return exists, nil
}

// NumberExists reports whether a certificate with the number exists.
func (s *CertificateStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM certificates WHERE number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check certificate number: %w", mapPostgresError(err))
	}

	return exists, nil
}

func (s *CertificateStore) queryCertificates(ctx context.Context, query string, args ...any) ([]*models.Certificate, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		result = append(result, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read certificates: %w", mapPostgresError(err))
	}

	return result, nil
}

func scanCertificate(row pgx.Row) (*models.Certificate, error) {
	var cert models.Certificate
	err := row.Scan(
		&cert.CertificateID, &cert.RecordID, &cert.Number, &cert.PetID, &cert.VetID, &cert.ClinicID,
		&cert.Payload, &cert.Hash, &cert.VetSignature, &cert.ClinicSignature, &cert.VetKeyID, &cert.ClinicKeyID,
		&cert.IssuedAt,
	)
	if err != nil {
		return nil, err
	}

	return &cert, nil
}
