package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// StaffStore implements store.StaffDirectory using in-memory storage.
type StaffStore struct {
	mu sync.RWMutex

	staff map[uuid.UUID]*models.Staff // staff_id -> Staff
}

// NewStaffStore creates a new in-memory staff directory.
func NewStaffStore() *StaffStore {
	return &StaffStore{
		staff: make(map[uuid.UUID]*models.Staff),
	}
}

// CreateStaff registers a staff member.
func (s *StaffStore) CreateStaff(ctx context.Context, member *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staff[member.StaffID] = cloneStaff(member)

	return nil
}

// FindStaff retrieves a staff member by ID.
func (s *StaffStore) FindStaff(ctx context.Context, staffID uuid.UUID) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, exists := s.staff[staffID]
	if !exists {
		return nil, store.ErrStaffNotFound
	}

	return cloneStaff(member), nil
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

func cloneStaff(member *models.Staff) *models.Staff {
	clone := *member
	if member.ClinicID != nil {
		clinicID := *member.ClinicID
		clone.ClinicID = &clinicID
	}
	return &clone
}
