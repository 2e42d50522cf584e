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

// ClinicStore implements store.ClinicDirectory using PostgreSQL.
type ClinicStore struct {
	pool *pgxpool.Pool
}

// NewClinicStore creates a new PostgreSQL-backed clinic directory.
func NewClinicStore(pool *pgxpool.Pool) *ClinicStore {
	return &ClinicStore{
		pool: pool,
	}
}

// CreateClinic registers a clinic.
func (s *ClinicStore) CreateClinic(ctx context.Context, clinic *models.Clinic) error {
	query := `
		INSERT INTO clinics (
			clinic_id, name, address, city, country, phone,
			key_id, public_key, fingerprint, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		clinic.ClinicID, clinic.Name, clinic.Address, clinic.City, clinic.Country, clinic.Phone,
		clinic.KeyID, clinic.PublicKey, clinic.Fingerprint, clinic.CreatedAt, clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", mapPostgresError(err))
	}

	log.Debug().Str("clinic_id", clinic.ClinicID.String()).Str("name", clinic.Name).Msg("Created clinic")

	return nil
}

// FindClinic retrieves a clinic by ID.
func (s *ClinicStore) FindClinic(ctx context.Context, clinicID uuid.UUID) (*models.Clinic, error) {
	query := `
		SELECT
			clinic_id, name, address, city, country, phone,
			key_id, public_key, fingerprint, created_at, updated_at
		FROM clinics
		WHERE clinic_id = $1
	`

	var clinic models.Clinic
	err := s.pool.QueryRow(ctx, query, clinicID).Scan(
		&clinic.ClinicID, &clinic.Name, &clinic.Address, &clinic.City, &clinic.Country, &clinic.Phone,
		&clinic.KeyID, &clinic.PublicKey, &clinic.Fingerprint, &clinic.CreatedAt, &clinic.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrClinicNotFound
		}
		return nil, fmt.Errorf("failed to get clinic: %w", mapPostgresError(err))
	}

	return &clinic, nil
}
