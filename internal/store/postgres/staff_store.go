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

// StaffStore implements store.StaffDirectory using PostgreSQL.
type StaffStore struct {
	pool *pgxpool.Pool
}

// NewStaffStore creates a new PostgreSQL-backed staff directory.
func NewStaffStore(pool *pgxpool.Pool) *StaffStore {
	return &StaffStore{
		pool: pool,
	}
}

const staffColumns = `
	staff_id, role, name, surname, email, clinic_id,
	license_number, key_id, public_key, fingerprint, active,
	created_at, updated_at
`

// CreateStaff registers a staff member.
func (s *StaffStore) CreateStaff(ctx context.Context, member *models.Staff) error {
	query := `
		INSERT INTO staff (` + staffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		member.StaffID, member.Role, member.Name, member.Surname, member.Email, member.ClinicID,
		member.LicenseNumber, member.KeyID, member.PublicKey, member.Fingerprint, member.Active,
		member.CreatedAt, member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create staff member: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("staff_id", member.StaffID.String()).
		Str("role", member.Role).
		Msg("Created staff member")

	return nil
}

// FindStaff retrieves a staff member by ID.
func (s *StaffStore) FindStaff(ctx context.Context, staffID uuid.UUID) (*models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE staff_id = $1`

	var member models.Staff
	err := s.pool.QueryRow(ctx, query, staffID).Scan(
		&member.StaffID, &member.Role, &member.Name, &member.Surname, &member.Email, &member.ClinicID,
		&member.LicenseNumber, &member.KeyID, &member.PublicKey, &member.Fingerprint, &member.Active,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff member: %w", mapPostgresError(err))
	}

	return &member, nil
}

// FindVet retrieves a staff member and requires the VET role.
func (s *StaffStore) FindVet(ctx context.Context, staffID uuid.UUID) (*models.Staff, error) {
	member, err := s.FindStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !member.IsVet() {
		return nil, store.ErrStaffNotFound
	}

	return member, nil
}
