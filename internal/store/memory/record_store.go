package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// RecordStore implements store.RecordStore using in-memory storage.
// This implementation is for testing and single-node development - data is
// lost on restart.
type RecordStore struct {
	mu sync.RWMutex

	records map[uuid.UUID]*models.MedicalRecord // record_id -> MedicalRecord
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[uuid.UUID]*models.MedicalRecord),
	}
}

// CreateRecord stores a new medical record.
func (s *RecordStore) CreateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneRecord(rec)
	s.records[rec.RecordID] = clone

	return nil
}

// GetRecord retrieves a record by ID.
func (s *RecordStore) GetRecord(ctx context.Context, recordID uuid.UUID) (*models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[recordID]
	if !exists {
		return nil, store.ErrRecordNotFound
	}

	return cloneRecord(rec), nil
}

// UpdateRecord replaces a stored record.
func (s *RecordStore) UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.RecordID]; !exists {
		return store.ErrRecordNotFound
	}

	rec.UpdatedAt = time.Now()
	s.records[rec.RecordID] = cloneRecord(rec)

	return nil
}

// DeleteRecord removes a record.
func (s *RecordStore) DeleteRecord(ctx context.Context, recordID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[recordID]; !exists {
		return store.ErrRecordNotFound
	}

	delete(s.records, recordID)

	return nil
}

// ListRecordsByPet returns the pet's records newest first.
func (s *RecordStore) ListRecordsByPet(ctx context.Context, petID uuid.UUID, filter store.RecordFilter) ([]*models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.MedicalRecord
	for _, rec := range s.records {
		if rec.PetID != petID {
			continue
		}
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		result = append(result, cloneRecord(rec))
	}

	sortNewestFirst(result)

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// FindRabiesVaccinations returns signed rabies vaccinations newest first.
func (s *RecordStore) FindRabiesVaccinations(ctx context.Context, petID uuid.UUID) ([]*models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.MedicalRecord
	for _, rec := range s.records {
		if rec.PetID != petID || !rec.IsSigned() || !rec.IsRabiesVaccination() {
			continue
		}
		result = append(result, cloneRecord(rec))
	}

	sortNewestFirst(result)

	return result, nil
}

// FindCheckupsSince returns signed annual checks after the cutoff, newest first.
func (s *RecordStore) FindCheckupsSince(ctx context.Context, petID uuid.UUID, cutoff time.Time) ([]*models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.MedicalRecord
	for _, rec := range s.records {
		if rec.PetID != petID || rec.Type != models.RecordTypeAnnualCheck || !rec.IsSigned() {
			continue
		}
		if !rec.CreatedAt.After(cutoff) {
			continue
		}
		result = append(result, cloneRecord(rec))
	}

	sortNewestFirst(result)

	return result, nil
}

// freeze marks a record immutable. Called by the certificate store while it
// holds its own lock, so certificate insert and record freeze act as one unit
// for observers going through the stores.
func (s *RecordStore) freeze(recordID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[recordID]
	if !exists {
		return store.ErrRecordNotFound
	}
	if rec.Immutable {
		return store.ErrCertificateExistsForRecord
	}

	rec.Immutable = true
	rec.UpdatedAt = time.Now()

	return nil
}

func sortNewestFirst(recs []*models.MedicalRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}

// cloneRecord deep-copies a record so callers cannot mutate stored state.
func cloneRecord(rec *models.MedicalRecord) *models.MedicalRecord {
	clone := *rec
	if rec.Vaccine != nil {
		vaccine := *rec.Vaccine
		clone.Vaccine = &vaccine
	}
	if rec.Signature != nil {
		sig := *rec.Signature
		clone.Signature = &sig
	}
	return &clone
}
