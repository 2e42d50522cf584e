package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// ClinicStore implements store.ClinicDirectory using in-memory storage.
type ClinicStore struct {
	mu sync.RWMutex

	clinics map[uuid.UUID]*models.Clinic // clinic_id -> Clinic
}

// NewClinicStore creates a new in-memory clinic directory.
func NewClinicStore() *ClinicStore {
	return &ClinicStore{
		clinics: make(map[uuid.UUID]*models.Clinic),
	}
}

// CreateClinic registers a clinic.
func (s *ClinicStore) CreateClinic(ctx context.Context, clinic *models.Clinic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *clinic
	s.clinics[clinic.ClinicID] = &clone

	return nil
}

// FindClinic retrieves a clinic by ID.
func (s *ClinicStore) FindClinic(ctx context.Context, clinicID uuid.UUID) (*models.Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clinic, exists := s.clinics[clinicID]
	if !exists {
		return nil, store.ErrClinicNotFound
	}

	clone := *clinic
	return &clone, nil
}
