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

// PetStore implements store.PetDirectory using PostgreSQL.
type PetStore struct {
	pool *pgxpool.Pool
}

// NewPetStore creates a new PostgreSQL-backed pet directory.
func NewPetStore(pool *pgxpool.Pool) *PetStore {
	return &PetStore{
		pool: pool,
	}
}

// CreatePet registers a pet.
func (s *PetStore) CreatePet(ctx context.Context, pet *models.Pet) error {
	query := `
		INSERT INTO pets (
			pet_id, name, species, breed_id, birth_date,
			gender, microchip, owner_id, active_clinic_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		pet.PetID, pet.Name, pet.Species, pet.BreedID, pet.BirthDate,
		pet.Gender, pet.Microchip, pet.OwnerID, pet.ActiveClinicID,
		pet.CreatedAt, pet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pet: %w", mapPostgresError(err))
	}

	log.Debug().Str("pet_id", pet.PetID.String()).Str("name", pet.Name).Msg("Created pet")

	return nil
}

// CreateBreed registers a breed catalog entry.
func (s *PetStore) CreateBreed(ctx context.Context, breed *models.Breed) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO breeds (breed_id, name, species) VALUES ($1, $2, $3)`,
		breed.BreedID, breed.Name, breed.Species,
	)
	if err != nil {
		return fmt.Errorf("failed to create breed: %w", mapPostgresError(err))
	}

	return nil
}

// FindPet retrieves a pet by ID.
func (s *PetStore) FindPet(ctx context.Context, petID uuid.UUID) (*models.Pet, error) {
	query := `
		SELECT
			pet_id, name, species, breed_id, birth_date,
			gender, microchip, owner_id, active_clinic_id,
			created_at, updated_at
		FROM pets
		WHERE pet_id = $1
	`

	var pet models.Pet
	err := s.pool.QueryRow(ctx, query, petID).Scan(
		&pet.PetID, &pet.Name, &pet.Species, &pet.BreedID, &pet.BirthDate,
		&pet.Gender, &pet.Microchip, &pet.OwnerID, &pet.ActiveClinicID,
		&pet.CreatedAt, &pet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPetNotFound
		}
		return nil, fmt.Errorf("failed to get pet: %w", mapPostgresError(err))
	}

	return &pet, nil
}

// FindBreed retrieves a breed by ID.
func (s *PetStore) FindBreed(ctx context.Context, breedID uuid.UUID) (*models.Breed, error) {
	var breed models.Breed
	err := s.pool.QueryRow(ctx,
		`SELECT breed_id, name, species FROM breeds WHERE breed_id = $1`, breedID,
	).Scan(&breed.BreedID, &breed.Name, &breed.Species)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrBreedNotFound
		}
		return nil, fmt.Errorf("failed to get breed: %w", mapPostgresError(err))
	}

	return &breed, nil
}
