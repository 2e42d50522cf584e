package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// PetStore implements store.PetDirectory using in-memory storage.
type PetStore struct {
	mu sync.RWMutex

	pets   map[uuid.UUID]*models.Pet   // pet_id -> Pet
	breeds map[uuid.UUID]*models.Breed // breed_id -> Breed
}

// NewPetStore creates a new in-memory pet directory.
func NewPetStore() *PetStore {
	return &PetStore{
		pets:   make(map[uuid.UUID]*models.Pet),
		breeds: make(map[uuid.UUID]*models.Breed),
	}
}

// CreatePet registers a pet.
func (s *PetStore) CreatePet(ctx context.Context, pet *models.Pet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *pet
	if pet.BreedID != nil {
		breedID := *pet.BreedID
		clone.BreedID = &breedID
	}
	if pet.ActiveClinicID != nil {
		clinicID := *pet.ActiveClinicID
		clone.ActiveClinicID = &clinicID
	}
	s.pets[pet.PetID] = &clone

	return nil
}

// CreateBreed registers a breed catalog entry.
func (s *PetStore) CreateBreed(ctx context.Context, breed *models.Breed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *breed
	s.breeds[breed.BreedID] = &clone

	return nil
}

// FindPet retrieves a pet by ID.
func (s *PetStore) FindPet(ctx context.Context, petID uuid.UUID) (*models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pet, exists := s.pets[petID]
	if !exists {
		return nil, store.ErrPetNotFound
	}

	clone := *pet
	return &clone, nil
}

// FindBreed retrieves a breed by ID.
func (s *PetStore) FindBreed(ctx context.Context, breedID uuid.UUID) (*models.Breed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	breed, exists := s.breeds[breedID]
	if !exists {
		return nil, store.ErrBreedNotFound
	}

	clone := *breed
	return &clone, nil
}
